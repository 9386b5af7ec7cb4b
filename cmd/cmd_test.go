package cmd

import (
	"path/filepath"
	"testing"

	"mspro-labs/weekly-shop/internal/db"
)

func TestOpenStoreRecordsRun(t *testing.T) {
	database, runID := openStore(filepath.Join(t.TempDir(), "shop.db"), "weekly.txt")
	if database == nil {
		t.Fatal("Expected a database")
	}
	defer database.Close()

	if runID == 0 {
		t.Fatal("Expected a run id")
	}
	run, err := db.GetRun(database, runID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != db.StatusRunning || run.ListPath != "weekly.txt" {
		t.Errorf("Run = %+v", run)
	}
}

func TestOpenStoreFailureIsNotFatal(t *testing.T) {
	// A directory cannot be opened as a database.
	database, runID := openStore(t.TempDir(), "weekly.txt")
	if database != nil {
		database.Close()
		t.Error("Expected no database when the store cannot be opened")
	}
	if runID != 0 {
		t.Errorf("runID = %d; want 0", runID)
	}
}

func TestCacheClearingLivesOnEmbed(t *testing.T) {
	if embedCmd.Flags().Lookup("clear") == nil {
		t.Error("embed should accept --clear")
	}
	if historyCmd.Args(historyCmd, []string{"1", "clear-cache"}) == nil {
		t.Error("history should take at most a run id")
	}
}
