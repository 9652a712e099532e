package cli

import (
	"context"
	"flag"
	"fmt"
	"time"
)

// jobTimeout bounds a one-shot command run.
const jobTimeout = 30 * time.Minute

func jobContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), jobTimeout)
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := jobContext()
	defer cancel()
	res, err := a.pipeline.ScanAndSchedule(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	fmt.Printf("run_id: %s\n", res.RunID)
	fmt.Printf("scanned: %d\n", res.Scanned)
	fmt.Printf("claimed: %d\n", res.Claimed)
	fmt.Printf("uploaded: %d\n", res.Uploaded)
	fmt.Printf("failed: %d\n", res.Failed)
	fmt.Printf("skipped: %d\n", res.Skipped)
	printErrorLines(res.Errors)
	return nil
}

func runUploadDue(args []string) error {
	fs := flag.NewFlagSet("upload-due", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := jobContext()
	defer cancel()
	res, err := a.pipeline.RunDueUploads(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	if res.Skipped {
		fmt.Println("skipped: another worker holds the upload lock")
		return nil
	}
	fmt.Printf("run_id: %s\n", res.RunID)
	fmt.Printf("checked: %d\n", res.Checked)
	fmt.Printf("uploaded: %d\n", res.Uploaded)
	fmt.Printf("failed: %d\n", res.Failed)
	printErrorLines(res.Errors)
	return nil
}

func runPromote(args []string) error {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "report without writing")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := jobContext()
	defer cancel()
	res, err := a.reconcile.PromotePublished(ctx, *dryRun)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	fmt.Printf("run_id: %s\n", res.RunID)
	fmt.Printf("checked: %d\n", res.Checked)
	fmt.Printf("published: %d\n", res.Published)
	fmt.Printf("moved: %d\n", res.Moved)
	fmt.Printf("sheet_updated: %d\n", res.SheetUpdated)
	fmt.Printf("skipped: %d\n", res.Skipped)
	if res.DryRun {
		fmt.Println("dry_run: nothing was written")
	}
	printErrorLines(res.Errors)
	return nil
}

func runDrift(args []string) error {
	fs := flag.NewFlagSet("drift", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := jobContext()
	defer cancel()
	res, err := a.reconcile.ScheduleDrift(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	fmt.Printf("run_id: %s\n", res.RunID)
	fmt.Printf("checked: %d\n", res.Checked)
	fmt.Printf("aligned: %d\n", res.Aligned)
	fmt.Printf("published: %d\n", res.Published)
	fmt.Printf("restored: %d\n", res.Restored)
	printErrorLines(res.Errors)
	return nil
}

func runDeletions(args []string) error {
	fs := flag.NewFlagSet("deletions", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := jobContext()
	defer cancel()
	res, err := a.reconcile.Deletions(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	fmt.Printf("run_id: %s\n", res.RunID)
	fmt.Printf("checked: %d\n", res.Checked)
	fmt.Printf("deleted: %d\n", res.Deleted)
	printErrorLines(res.Errors)
	return nil
}

func runAudit(args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "report delete candidates without deleting")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*dryRun && !*yes {
		ok, err := promptConfirm("audit deletes report rows; continue? [y/N] ")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("aborted")
			return nil
		}
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := jobContext()
	defer cancel()
	res, err := a.reconcile.SheetAudit(ctx, *dryRun)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	fmt.Printf("run_id: %s\n", res.RunID)
	fmt.Printf("scanned: %d\n", res.Scanned)
	fmt.Printf("with_id: %d\n", res.WithID)
	fmt.Printf("candidates: %v\n", res.Candidates)
	fmt.Printf("deleted: %d\n", res.Deleted)
	if res.Aborted {
		fmt.Printf("aborted: %s\n", res.AbortReason)
	}
	printErrorLines(res.Errors)
	return nil
}

func runViews(args []string) error {
	fs := flag.NewFlagSet("views", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := jobContext()
	defer cancel()
	res, err := a.reconcile.RefreshViews(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	if res.Skipped {
		fmt.Println("skipped: another worker holds the views lock")
		return nil
	}
	fmt.Printf("run_id: %s\n", res.RunID)
	fmt.Printf("checked: %d\n", res.Checked)
	fmt.Printf("updated: %d\n", res.Updated)
	printErrorLines(res.Errors)
	return nil
}

func runSheetSync(args []string) error {
	fs := flag.NewFlagSet("sheet-sync", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := jobContext()
	defer cancel()
	res, err := a.reconcile.SyncPublishedRows(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	fmt.Printf("run_id: %s\n", res.RunID)
	fmt.Printf("checked: %d\n", res.Checked)
	fmt.Printf("updated: %d\n", res.Updated)
	fmt.Printf("moved: %d\n", res.Moved)
	printErrorLines(res.Errors)
	return nil
}

func runSnapshot(args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	limit := fs.Int("limit", 100, "records to include, most recent first")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := jobContext()
	defer cancel()
	flags, err := a.store.ReadySnapshot(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(flags)
	}
	for _, f := range flags {
		pick := " "
		if f.WouldBePicked() {
			pick = "*"
		}
		fmt.Printf("%s %6d  %-10s  video=%-5v due=%-5v status_ok=%-5v  %s  %s\n",
			pick, f.ID, f.Status, f.HasVideoID, f.IsDue, f.StatusOK,
			f.ScheduleTime.Format("2006-01-02 15:04"), f.FolderID)
	}
	return nil
}

func printErrorLines(errs []string) {
	for _, e := range errs {
		fmt.Printf("error: %s\n", e)
	}
}
