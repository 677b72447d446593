package cli

import (
	"context"
	"fmt"
	"os"
)

// Status summarizes the engine installation.
type Status struct {
	ConfigFile       string   `json:"config_file,omitempty"`
	Environment      string   `json:"environment"`
	DefaultGuideline string   `json:"default_guideline"`
	Driver           string   `json:"driver"`
	DataDir          string   `json:"data_dir,omitempty"`
	HistoryPresent   bool     `json:"history_present"`
	Observations     int64    `json:"observations"`
	Patients         int      `json:"patients"`
	Issues           []string `json:"issues,omitempty"`
}

// status reports configuration and history state without creating anything.
func (c *CLI) status(ctx context.Context, args []string) error {
	cfg := c.config.GetConfig()
	status := &Status{
		ConfigFile:       c.config.ConfigFile(),
		Environment:      cfg.Environment,
		DefaultGuideline: c.config.DefaultGuideline().String(),
		Driver:           cfg.Storage.Driver,
	}

	if cfg.Storage.Driver == "sqlite" {
		status.DataDir = cfg.Storage.DataDir
		if _, err := os.Stat(c.config.HistoryDBPath()); os.IsNotExist(err) {
			status.Issues = append(status.Issues,
				fmt.Sprintf("History database will be created on first record: %s", c.config.HistoryDBPath()))
			return c.printJSON(status)
		}
	}

	store, err := c.openStore(ctx)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Cannot open history store: %v", err))
		return c.printJSON(status)
	}
	defer store.Close()
	status.HistoryPresent = true

	if status.Observations, err = store.Count(ctx); err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Cannot count observations: %v", err))
	}
	patients, err := store.ListPatients(ctx)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Cannot list patients: %v", err))
	}
	status.Patients = len(patients)

	return c.printJSON(status)
}
