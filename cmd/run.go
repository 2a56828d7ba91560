package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/phone-finder/internal/export"
	"github.com/sells-group/phone-finder/internal/finder"
	"github.com/sells-group/phone-finder/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Look up phone numbers for one company or a bulk list",
	Long: `Executes one run. The input document comes from --input (a JSON or YAML
file, or "-" for stdin); individual flags override its fields.

Examples:
  phone-finder run --company "Acme Inc" --country US
  phone-finder run --type bulk --companies '["Apple Inc", "Google"]' --format csv --output phones.csv
  phone-finder run --input request.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		in, err := buildInput(cmd.Flags(), cmd.InOrStdin())
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		formatName, _ := cmd.Flags().GetString("format")
		format, err := outputFormat(formatName, output)
		if err != nil {
			return err
		}

		env, err := initFinder(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.execute(ctx, in)
		if err != nil {
			return err
		}

		printRunReport(cmd.ErrOrStderr(), res)
		return writeOutput(output, format, res.Items, cmd.OutOrStdout())
	},
}

func init() {
	registerRunFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

func registerRunFlags(fs *pflag.FlagSet) {
	fs.String("input", "", `input document path (.json, .yaml, .yml) or "-" for stdin`)
	fs.String("type", "", "run mode: individual or bulk")
	fs.String("company", "", "company name (individual mode)")
	fs.String("companies", "", `JSON array of company names (bulk mode), e.g. '["Apple Inc", "Google"]'`)
	fs.String("country", "", "country hint sent with every lookup")
	fs.StringSlice("phone-types", nil, "phone types to request (default main,support,sales)")
	fs.Int("max-results", model.DefaultMaxResults, "maximum phone numbers per company")
	fs.String("output", "", "write items to this file instead of stdout")
	fs.String("format", "", "output format: json, csv or xlsx (default from --output extension, else json)")
}

// buildInput loads --input when given and applies the flags that were set
// explicitly on top of it.
func buildInput(fs *pflag.FlagSet, stdin io.Reader) (model.Input, error) {
	var in model.Input
	if path, _ := fs.GetString("input"); path != "" {
		loaded, err := finder.LoadInput(path, stdin)
		if err != nil {
			return in, err
		}
		in = loaded
	}

	if fs.Changed("type") {
		in.Type, _ = fs.GetString("type")
	}
	if fs.Changed("company") {
		in.CompanyName, _ = fs.GetString("company")
	}
	if fs.Changed("companies") {
		in.CompanyNames, _ = fs.GetString("companies")
		if !fs.Changed("type") {
			in.Type = string(model.ModeBulk)
		}
	}
	if fs.Changed("country") {
		in.Country, _ = fs.GetString("country")
	}
	if fs.Changed("phone-types") {
		in.PhoneTypes, _ = fs.GetStringSlice("phone-types")
	}
	if fs.Changed("max-results") {
		n, _ := fs.GetInt("max-results")
		in.MaxResults = &n
	}
	return in, nil
}

// outputFormat resolves --format, falling back to the output extension.
func outputFormat(name, output string) (export.Format, error) {
	if name == "" && output != "" {
		name = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
		if name != string(export.FormatCSV) && name != string(export.FormatXLSX) {
			name = ""
		}
	}
	return export.ParseFormat(name)
}

func writeOutput(path string, format export.Format, items []json.RawMessage, stdout io.Writer) error {
	if path == "" {
		return export.Write(stdout, format, items)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create output %s", path)
	}
	if err := export.Write(f, format, items); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "close output %s", path)
}

func printRunReport(w io.Writer, res *runResult) {
	_, _ = fmt.Fprintf(w, "Run %s: %s (%s)\n", res.Run.ID, res.Run.Status, res.Run.Mode)
	if res.Run.Error != "" {
		_, _ = fmt.Fprintf(w, "Error: %s\n", res.Run.Error)
	}
	if s := res.Summary; s != nil {
		_, _ = fmt.Fprintf(w, "Processed %d, phones found %d, errors %d, success rate %s\n",
			s.TotalProcessed, s.PhonesFound, s.Errors, s.SuccessRate)
	}
}
