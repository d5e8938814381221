package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/ats/internal/apiclient"
	"github.com/trogers1052/ats/internal/models"
	"gopkg.in/yaml.v3"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	return table
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}

func optMoney(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2)
}

func stamp(t *models.Timestamp) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func decimalOf(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

func bar(width int) string {
	return strings.Repeat("#", width)
}

func errMessage(err error) string {
	return apiclient.Message(err)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// readDraft loads a strategy draft from a YAML or JSON file; "-" reads stdin.
// YAML keys use the API field names, so the document goes through JSON.
func readDraft(path string, stdin io.Reader) (models.StrategyDraft, error) {
	var d models.StrategyDraft
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return d, fmt.Errorf("failed to read draft: %w", err)
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return d, fmt.Errorf("failed to parse draft: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return d, fmt.Errorf("failed to parse draft: %w", err)
	}
	d, err = models.UnmarshalStrategyDraft(raw)
	if errors.Is(err, models.ErrValidation) {
		return d, err
	}
	if err != nil {
		return d, fmt.Errorf("failed to parse draft: %w", err)
	}
	return d, nil
}

// writeDraft prints a draft as YAML with the API field names
func writeDraft(w io.Writer, d models.StrategyDraft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func splitTickers(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return models.NormalizeTickers(strings.Split(s, ","))
}
