// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mimblenet/mnd/blockchain"
	"github.com/mimblenet/mnd/database"
)

// cfg is the loaded application configuration.
var cfg *config

// loadBlockDB opens (and creates when necessary) the chain state database
// for the active network.
func loadBlockDB() (database.DB, error) {
	dbPath := filepath.Join(cfg.DataDir, "chainstate")
	mndLog.Infof("Loading block database from '%s'", dbPath)
	db, err := database.OpenLevelDB(dbPath)
	if err != nil {
		return nil, err
	}
	mndLog.Info("Block database loaded")
	return db, nil
}

// mndMain is the real main function for mnd.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is
// called.
func mndMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	tcfg, _, err := loadConfig(appName)
	if err != nil {
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Get a context that will be canceled when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem.
	ctx := shutdownListener()
	defer mndLog.Info("Shutdown complete")

	// Show version and home dir at startup.
	mndLog.Infof("Version %s (Go version %s %s/%s)", version(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	mndLog.Infof("Home dir: %s", cfg.HomeDir)
	if cfg.NoFileLogging {
		mndLog.Info("File logging disabled")
	}

	// Load the block database.
	db, err := loadBlockDB()
	if err != nil {
		mndLog.Errorf("%v", err)
		return err
	}
	defer func() {
		mndLog.Infof("Gracefully shutting down the block database...")
		db.Close()
	}()

	// Return now if an interrupt signal was triggered during database
	// load.
	if shutdownRequested(ctx) {
		return nil
	}

	// Create the chain instance, initializing the chain state to the
	// genesis block when the database is fresh.
	chain, err := blockchain.New(&blockchain.Config{
		DB:          db,
		ChainParams: activeNetParams,
	})
	if err != nil {
		mndLog.Errorf("Unable to initialize chain: %v", err)
		return err
	}
	best := chain.BestSnapshot()
	mndLog.Infof("Chain initialized on %s (height %d, hash %v)",
		activeNetParams.Name, best.Height, best.Hash)

	// Wait until the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems.
	<-ctx.Done()
	return nil
}

func main() {
	// Work around defer not working after os.Exit()
	if err := mndMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
