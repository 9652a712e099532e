package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"yt-publish-scheduler/internal/config"
	"yt-publish-scheduler/internal/gclient"
	"yt-publish-scheduler/internal/ledger"
)

type doctorResult struct {
	OK     bool          `json:"ok"`
	Checks []doctorCheck `json:"checks"`
}

type doctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// runDoctor probes every external surface the service depends on:
// configuration, the ledger database, the Drive parent folder, and the
// report spreadsheet.
func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())
	jsonOut := fs.Bool("json", false, "print result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res := doctorResult{OK: true}
	add := func(name string, ok bool, message string) {
		res.Checks = append(res.Checks, doctorCheck{Name: name, OK: ok, Message: message})
		if !ok {
			res.OK = false
		}
	}

	cfg, err := config.Load()
	if err != nil {
		add("config", false, err.Error())
		return printDoctor(res, *jsonOut)
	}
	add("config", true, fmt.Sprintf("publish slot %02d:%02d %s", cfg.PublishHour, cfg.PublishMinute, cfg.Timezone))

	store, err := ledger.Open(cfg.DatabaseDSN)
	if err != nil {
		add("database", false, err.Error())
	} else {
		defer store.Close()
		if err := store.Ping(); err != nil {
			add("database", false, err.Error())
		} else {
			add("database", true, "reachable")
		}
	}

	httpc := gclient.BearerClient(cfg.GoogleBearerToken)

	driveSvc := gclient.NewDrive(httpc)
	folders, err := driveSvc.ListChildFolders(ctx, cfg.ParentFolderID)
	if err != nil {
		add("drive:parent-folder", false, err.Error())
	} else {
		add("drive:parent-folder", true, fmt.Sprintf("%d candidate folders", len(folders)))
	}

	sheets := gclient.NewSheets(httpc, cfg.SpreadsheetID, cfg.SheetName, cfg.SheetGridID)
	if _, err := sheets.GetCell(ctx, "A", 1); err != nil {
		add("sheets:report", false, err.Error())
	} else {
		add("sheets:report", true, "reachable")
	}

	return printDoctor(res, *jsonOut)
}

func printDoctor(res doctorResult, jsonOut bool) error {
	if jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		for _, c := range res.Checks {
			mark := "ok"
			if !c.OK {
				mark = "FAIL"
			}
			fmt.Printf("%-22s %-4s %s\n", c.Name, mark, c.Message)
		}
	}
	if !res.OK {
		return fmt.Errorf("doctor found problems")
	}
	return nil
}
