package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sc2helper/predictor/internal/catalog"
	"github.com/sc2helper/predictor/internal/config"
	"github.com/sc2helper/predictor/internal/predictor"
)

var errNoScenario = errors.New("scenario file required")

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadRequest builds a request from a scenario file. --seed and --record
// override the scenario.
func loadRequest(args []string) (predictor.Request, string, error) {
	if len(args) == 0 {
		return predictor.Request{}, "", errNoScenario
	}
	base, err := config.GetCombatSettings()
	if err != nil {
		return predictor.Request{}, "", err
	}
	sc, err := catalog.LoadScenario(args[0], base)
	if err != nil {
		return predictor.Request{}, "", err
	}

	req := predictor.Request{
		Side1:    sc.Side1,
		Side2:    sc.Side2,
		Defender: sc.Defender,
		Seed:     sc.Seed,
		Settings: &sc.Settings,
		Record:   viper.GetBool("combat.record"),
	}
	if seed := viper.GetInt64("combat.seed"); seed != 0 {
		req.Seed = seed
	}
	return req, sc.Name, nil
}

func (a *app) predict(ctx context.Context, args []string) error {
	req, name, err := loadRequest(args)
	if err != nil {
		return err
	}
	resp, err := a.service.Predict(ctx, req)
	if err != nil {
		return fmt.Errorf("predict %s: %w", args[0], err)
	}
	Logger.Info("Predicted engagement", "scenario", name, "winner", resp.Winner, "health", resp.Health)
	return printJSON(resp)
}

func (a *app) batch(ctx context.Context, args []string) error {
	req, name, err := loadRequest(args)
	if err != nil {
		return err
	}
	runs, err := pflag.CommandLine.GetInt("runs")
	if err != nil {
		return err
	}
	if name == "" {
		name = args[0]
	}

	summary, err := a.service.Batch(ctx, predictor.BatchRequest{
		Request: req,
		Name:    name,
		Runs:    runs,
		Workers: viper.GetInt("worker.count"),
	})
	if err != nil {
		return fmt.Errorf("batch %s: %w", args[0], err)
	}
	return printJSON(summary)
}
