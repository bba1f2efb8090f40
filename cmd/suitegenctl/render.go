package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"suitegen/internal/model"
	"suitegen/pkg/suitegen"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	invalidStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	boundaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bestStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// renderCases prints one row per case with a column per parameter.
func renderCases(params []model.Parameter, cases []model.TestCase) string {
	headers := make([]string, 0, len(params)+2)
	headers = append(headers, "#")
	for _, param := range params {
		headers = append(headers, param.Name)
	}
	headers = append(headers, "SCORE")

	rows := make([][]string, 0, len(cases))
	categories := make([][]model.Category, 0, len(cases))
	for i, tc := range cases {
		row := make([]string, 0, len(headers))
		row = append(row, strconv.Itoa(i+1))
		cats := make([]model.Category, len(tc.Values))
		for j, value := range tc.Values {
			row = append(row, fmt.Sprintf("%v", value.Value))
			cats[j] = value.Category
		}
		row = append(row, fmt.Sprintf("%.2f", tc.Score))
		rows = append(rows, row)
		categories = append(categories, cats)
	}

	t := newTable(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(categories) || col < 1 || col > len(categories[row]) {
				return lipgloss.NewStyle()
			}
			switch categories[row][col-1] {
			case model.CategoryInvalid, model.CategoryBoundaryInvalid:
				return invalidStyle
			case model.CategoryBoundaryValid:
				return boundaryStyle
			}
			return lipgloss.NewStyle()
		}).
		Rows(rows...)
	return t.String()
}

func renderRuns(runs []model.RunRecord) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.CreatedAtUTC.Format("2006-01-02 15:04:05"),
			strconv.FormatInt(run.Seed, 10),
			strconv.Itoa(run.Generations),
			strconv.Itoa(run.SeedSize),
			strconv.Itoa(run.FinalSize),
			fmt.Sprintf("%.2f", run.BestScore),
		})
	}
	t := newTable("RUN ID", "CREATED (UTC)", "SEED", "GENS", "SEED SIZE", "FINAL", "BEST").
		StyleFunc(headerOnly).
		Rows(rows...)
	return t.String()
}

func renderDiagnostics(diags []model.GenerationDiagnostics) string {
	rows := make([][]string, 0, len(diags))
	for _, d := range diags {
		scout := ""
		if d.ScoutPhaseActivated {
			scout = strconv.Itoa(d.ScoutsReplaced)
		}
		rows = append(rows, []string{
			strconv.Itoa(d.Generation),
			fmt.Sprintf("%.2f", d.BestScore),
			fmt.Sprintf("%.2f", d.MeanScore),
			fmt.Sprintf("%.2f", d.MinScore),
			fmt.Sprintf("%.3f", d.Temperature),
			fmt.Sprintf("%d/%d", d.MutationsAccepted, d.MutationsAttempted),
			strconv.Itoa(d.OnlookersAdded),
			scout,
		})
	}
	t := newTable("GEN", "BEST", "MEAN", "MIN", "TEMP", "ACCEPTED", "ONLOOKERS", "SCOUTS").
		StyleFunc(headerOnly).
		Rows(rows...)
	return t.String()
}

func renderExplore(items []suitegen.ExploreItem, best int) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.Seed, 10),
			strconv.Itoa(item.FinalSize),
			fmt.Sprintf("%.2f", item.BestScore),
			fmt.Sprintf("%.2f", item.TotalScore),
		})
	}
	t := newTable("SEED", "FINAL", "BEST", "TOTAL").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row == best {
				return bestStyle
			}
			return lipgloss.NewStyle()
		}).
		Rows(rows...)
	return t.String()
}

func headerOnly(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return lipgloss.NewStyle()
}
