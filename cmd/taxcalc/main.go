// taxcalc loads the jurisdiction rule catalog, reads a deal from a JSON
// file and prints the itemized tax result.
//
// Usage:
//
//	taxcalc -deal deal.json [-catalog dir] [-as-of 2024-06-15]
//	taxcalc -list
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/motorlot/taxengine/calc"
	"github.com/motorlot/taxengine/logger"
	"github.com/motorlot/taxengine/registry"
	"github.com/motorlot/taxengine/types/business"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	viper.SetEnvPrefix("taxengine")
	viper.AutomaticEnv()
	viper.SetDefault("stage", "dev")
	viper.SetDefault("catalog", "")

	dealPath := flag.String("deal", "", "path to a deal JSON file")
	catalogDir := flag.String("catalog", viper.GetString("catalog"), "external rule catalog directory (default: embedded catalog)")
	asOf := flag.String("as-of", "", "rule-set selection date, YYYY-MM-DD (default: today)")
	list := flag.Bool("list", false, "list implemented and stub jurisdictions and exit")
	flag.Parse()

	logger.InitLogger(viper.GetString("stage"))
	defer func() { _ = logger.Log.Sync() }()
	log := logger.Log.With(zap.String("run_id", uuid.NewString()))

	reg, err := loadRegistry(*catalogDir)
	if err != nil {
		log.Fatal("failed to load rule catalog", zap.Error(err))
	}

	if *list {
		fmt.Printf("implemented: %s\n", strings.Join(reg.ListImplemented(), ", "))
		fmt.Printf("stubs:       %s\n", strings.Join(reg.ListStubs(), ", "))
		return
	}

	if *dealPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	in, err := readDeal(*dealPath, *asOf)
	if err != nil {
		log.Fatal("failed to read deal", zap.Error(err))
	}

	engine := calc.NewEngine(reg)
	res, err := engine.Calculate(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		log.Fatal("failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))
}

func loadRegistry(catalogDir string) (*registry.Registry, error) {
	if catalogDir != "" {
		return registry.NewRegistryFromDir(catalogDir)
	}
	return registry.NewRegistryFromEmbedded()
}

func readDeal(path, asOf string) (business.TaxInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return business.TaxInput{}, err
	}
	var in business.TaxInput
	if err := json.Unmarshal(data, &in); err != nil {
		return business.TaxInput{}, err
	}
	if asOf != "" {
		ts, err := time.Parse("2006-01-02", asOf)
		if err != nil {
			return business.TaxInput{}, err
		}
		in.AsOf = ts
	}
	return in, nil
}
