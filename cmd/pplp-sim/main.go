// Package main — pplp-sim прогоняет эталонные сценарии движка (Ly, кит)
// на встроенных или файловых правилах без БД и сети.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/config"
	"funplay.vn/light-engine/internal/pplp"
)

type scenario struct {
	name string
	run  func(*pplp.ScoringRulesConfig) (pplp.SimulationResult, error)
}

var scenarios = []scenario{
	{"ly", pplp.SimulateUserLy},
	{"whale", pplp.SimulateWhaleEpoch},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pplp-sim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		rulesPath string
		version   string
		only      string
		asJSON    bool
	)
	fs.StringVar(&rulesPath, "rules", "", "файл с дополнительными версиями правил (toml/yaml/json)")
	fs.StringVar(&version, "version", pplp.RuleVersionV1, "версия правил")
	fs.StringVar(&only, "scenario", "all", "сценарий: ly, whale или all")
	fs.BoolVar(&asJSON, "json", false, "вывод в JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	registry, cfg, err := config.BuildRegistry(rulesPath, version)
	if err != nil {
		fmt.Fprintf(stderr, "Ошибка загрузки правил: %v\n", err)
		return 1
	}
	fp, _ := registry.FingerprintOf(cfg.RuleVersion)

	var results []pplp.SimulationResult
	for _, sc := range scenarios {
		if only != "all" && only != sc.name {
			continue
		}
		res, err := sc.run(cfg)
		if err != nil {
			fmt.Fprintf(stderr, "Сценарий %s: %v\n", sc.name, err)
			return 1
		}
		res.Settlement.Allocations = nil
		results = append(results, res)
	}
	if len(results) == 0 {
		fmt.Fprintf(stderr, "Неизвестный сценарий %q\n", only)
		return 2
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{
			"rule_version": cfg.RuleVersion,
			"fingerprint":  fp,
			"results":      results,
		}); err != nil {
			fmt.Fprintf(stderr, "Ошибка вывода: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stdout, "Правила %s (%s)\n\n", cfg.RuleVersion, fp)
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Сценарий\tLight Score\tСообщество\tПул\tМинт\tЛимит\tКит-проверка")
	for _, r := range results {
		check := "пройдена"
		if !r.AntiWhalePassed {
			check = "ПРОВАЛЕНА"
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%.2f\t%s\t%s\t%s\t%s\n",
			r.Name,
			r.LightScore,
			r.CommunityLight,
			common.FormatFUN(pplp.TokensToUnits(r.PoolAmount), pplp.MintUnitsPerToken),
			common.FormatFUN(r.Allocation.FinalUnits, pplp.MintUnitsPerToken),
			common.FormatFUN(pplp.TokensToUnits(r.AntiWhaleLimit), pplp.MintUnitsPerToken),
			check,
		)
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}
