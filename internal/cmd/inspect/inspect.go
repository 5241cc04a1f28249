// Package inspect prints stored penalty tables.
package inspect

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/louisbranch/respawn-penalty/internal/penalty"
	"github.com/louisbranch/respawn-penalty/internal/penalty/storage"
	"github.com/louisbranch/respawn-penalty/internal/penaltymod"
	entrypoint "github.com/louisbranch/respawn-penalty/internal/platform/cmd"
	apperrors "github.com/louisbranch/respawn-penalty/internal/platform/errors"
)

// Output formats.
const (
	FormatText = "text"
	FormatXML  = "xml"
)

// Config holds inspect command configuration.
type Config struct {
	penaltymod.Config
	Save   string `env:"INSPECT_SAVE"`
	Format string `env:"INSPECT_FORMAT" envDefault:"text"`
}

// ParseConfig parses env and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding penalty state")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "penalty store backend (xml or sqlite)")
	fs.StringVar(&cfg.Save, "save", cfg.Save, "save name or campaign save path (empty lists saves)")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output format (text or xml)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run prints the table stored for cfg.Save, or the stored save names when no
// save is given.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatXML {
		return apperrors.New(apperrors.CodeConfigInvalid, fmt.Sprintf("unknown format %q (want %s or %s)", cfg.Format, FormatText, FormatXML))
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceInspect, func(ctx context.Context) error {
		store, err := penaltymod.OpenStore(cfg.Config)
		if err != nil {
			return err
		}
		defer store.Close()

		if strings.TrimSpace(cfg.Save) == "" {
			return listSaves(ctx, store, out)
		}

		saveName := storage.SaveName(cfg.Save)
		table, err := store.Load(ctx, saveName)
		if err != nil {
			return fmt.Errorf("load %s: %w", saveName, err)
		}
		if format == FormatXML {
			return penalty.EncodeDocument(out, table)
		}
		return writeTable(out, saveName, table)
	})
}

func listSaves(ctx context.Context, store storage.Store, out io.Writer) error {
	lister, ok := store.(storage.Lister)
	if !ok {
		return fmt.Errorf("store cannot list saves")
	}
	names, err := lister.Saves(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := fmt.Fprintln(out, name); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(out io.Writer, saveName string, table penalty.Table) error {
	if _, err := fmt.Fprintf(out, "save %s: %d characters\n", saveName, len(table)); err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHARACTER\tSKILL\tTARGET")
	for _, id := range table.Characters() {
		record := table[id]
		for _, skill := range record.Skills() {
			fmt.Fprintf(w, "%d\t%s\t%g\n", id, skill, record[skill])
		}
	}
	return w.Flush()
}
