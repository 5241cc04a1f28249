package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const scenarioTypeName = "scenario"

// Scenario is an ordered list of steps loaded from a Lua script.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one scenario action with its arguments.
type Step struct {
	Kind string
	Args map[string]any
}

// LoadScenarioFromFile runs a Lua script that returns a Scenario.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerLuaTypes(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	scenario := &Scenario{Name: name}
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "character", Function: scenarioCharacter},
	{Name: "set_skill", Function: scenarioSetSkill},
	{Name: "gain", Function: scenarioGain(false)},
	{Name: "ability_gain", Function: scenarioGain(true)},
	{Name: "respawn", Function: scenarioRespawn},
	{Name: "die", Function: scenarioRespawn},
	{Name: "afflict", Function: scenarioAffliction("afflict")},
	{Name: "cure", Function: scenarioAffliction("cure")},
	{Name: "save", Function: scenarioLifecycle("save")},
	{Name: "start_round", Function: scenarioLifecycle("start_round")},
	{Name: "restart", Function: scenarioRestart},
	{Name: "expect_level", Function: scenarioExpectLevel},
	{Name: "expect_target", Function: scenarioExpectTarget},
	{Name: "expect_no_target", Function: scenarioExpectNoTarget},
	{Name: "expect_tracked", Function: scenarioExpectTracked},
}

func scenarioCharacter(state *lua.State) int {
	scenario := checkScenario(state)
	id := lua.CheckInteger(state, 2)
	data := optionalTable(state, 3)
	data["id"] = id
	appendStep(scenario, "character", data)
	return 0
}

func scenarioSetSkill(state *lua.State) int {
	scenario := checkScenario(state)
	id := lua.CheckInteger(state, 2)
	skill := lua.CheckString(state, 3)
	level := lua.CheckNumber(state, 4)
	appendStep(scenario, "set_skill", map[string]any{"id": id, "skill": skill, "level": normalizeNumber(level)})
	return 0
}

func scenarioGain(fromAbility bool) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		id := lua.CheckInteger(state, 2)
		skill := lua.CheckString(state, 3)
		amount := lua.CheckNumber(state, 4)
		data := optionalTable(state, 5)
		data["id"] = id
		data["skill"] = skill
		data["amount"] = normalizeNumber(amount)
		data["ability"] = fromAbility
		appendStep(scenario, "gain", data)
		return 0
	}
}

func scenarioRespawn(state *lua.State) int {
	scenario := checkScenario(state)
	id := lua.CheckInteger(state, 2)
	appendStep(scenario, "respawn", map[string]any{"id": id})
	return 0
}

func scenarioAffliction(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		id := lua.CheckInteger(state, 2)
		affliction := lua.CheckString(state, 3)
		appendStep(scenario, kind, map[string]any{"id": id, "affliction": affliction})
		return 0
	}
}

func scenarioLifecycle(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		appendStep(scenario, kind, optionalTable(state, 2))
		return 0
	}
}

func scenarioRestart(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "restart", nil)
	return 0
}

func scenarioExpectLevel(state *lua.State) int {
	scenario := checkScenario(state)
	id := lua.CheckInteger(state, 2)
	skill := lua.CheckString(state, 3)
	level := lua.CheckNumber(state, 4)
	appendStep(scenario, "expect_level", map[string]any{"id": id, "skill": skill, "level": normalizeNumber(level)})
	return 0
}

func scenarioExpectTarget(state *lua.State) int {
	scenario := checkScenario(state)
	id := lua.CheckInteger(state, 2)
	skill := lua.CheckString(state, 3)
	target := lua.CheckNumber(state, 4)
	appendStep(scenario, "expect_target", map[string]any{"id": id, "skill": skill, "target": normalizeNumber(target)})
	return 0
}

func scenarioExpectNoTarget(state *lua.State) int {
	scenario := checkScenario(state)
	id := lua.CheckInteger(state, 2)
	data := map[string]any{"id": id}
	if !state.IsNoneOrNil(3) {
		data["skill"] = lua.CheckString(state, 3)
	}
	appendStep(scenario, "expect_no_target", data)
	return 0
}

func scenarioExpectTracked(state *lua.State) int {
	scenario := checkScenario(state)
	count := lua.CheckInteger(state, 2)
	appendStep(scenario, "expect_tracked", map[string]any{"count": count})
	return 0
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func appendStep(scenario *Scenario, kind string, data map[string]any) int {
	if scenario == nil {
		return -1
	}
	if data == nil {
		data = map[string]any{}
	}
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: data})
	return len(scenario.Steps) - 1
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

// tableToMap copies the string-keyed fields of the table at index.
func tableToMap(state *lua.State, index int) map[string]any {
	fields := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return fields
	}
	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if key, ok := stringKey(state); ok {
			fields[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return fields
}

func stringKey(state *lua.State) (string, bool) {
	if state.TypeOf(-2) != lua.TypeString {
		return "", false
	}
	return state.ToString(-2)
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		text, _ := state.ToString(index)
		return text
	case lua.TypeNumber:
		number, _ := state.ToNumber(index)
		return normalizeNumber(number)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		if length := sequenceLength(state, index); length > 0 {
			return sequenceToSlice(state, index, length)
		}
		return tableToMap(state, index)
	default:
		return nil
	}
}

// sequenceLength returns n when the table at index has exactly the keys 1..n,
// and 0 otherwise.
func sequenceLength(state *lua.State, index int) int {
	index = state.AbsIndex(index)
	count, highest := 0, 0
	sequence := true
	state.PushNil()
	for state.Next(index) {
		key, ok := state.ToInteger(-2)
		if state.TypeOf(-2) != lua.TypeNumber || !ok || key < 1 {
			sequence = false
		} else {
			count++
			highest = max(highest, key)
		}
		state.Pop(1)
	}
	if !sequence || count != highest {
		return 0
	}
	return count
}

func sequenceToSlice(state *lua.State, index, length int) []any {
	index = state.AbsIndex(index)
	values := make([]any, 0, length)
	for i := 1; i <= length; i++ {
		state.RawGetInt(index, i)
		values = append(values, luaToGo(state, -1))
		state.Pop(1)
	}
	return values
}

// normalizeNumber returns whole numbers as int so step arguments compare
// naturally against Go literals.
func normalizeNumber(value float64) any {
	if math.Trunc(value) == value && math.Abs(value) < math.MaxInt32 {
		return int(value)
	}
	return value
}
