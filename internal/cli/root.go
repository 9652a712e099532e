package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	var err error
	switch args[0] {
	case "serve":
		err = runServe(args[1:])
	case "scan":
		err = runScan(args[1:])
	case "upload-due":
		err = runUploadDue(args[1:])
	case "promote":
		err = runPromote(args[1:])
	case "drift":
		err = runDrift(args[1:])
	case "deletions":
		err = runDeletions(args[1:])
	case "audit":
		err = runAudit(args[1:])
	case "views":
		err = runViews(args[1:])
	case "sheet-sync":
		err = runSheetSync(args[1:])
	case "snapshot":
		err = runSnapshot(args[1:])
	case "manage":
		err = runManage(args[1:])
	case "doctor":
		err = runDoctor(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	return err
}

func printRootUsage() {
	fmt.Println("yt-publish-scheduler: folder-to-publish scheduling and reconciliation")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  yt-publish-scheduler scan")
	fmt.Println("  yt-publish-scheduler snapshot")
	fmt.Println("  yt-publish-scheduler serve")
	fmt.Println()
	fmt.Println("Service:")
	fmt.Println("  serve       run the standing jobs and the HTTP trigger API")
	fmt.Println()
	fmt.Println("One-shot Jobs:")
	fmt.Println("  scan        scan the parent folder, claim and upload new candidates")
	fmt.Println("  upload-due  retry scheduled records whose slot has arrived")
	fmt.Println("  promote     promote remotely-published records (--dry-run)")
	fmt.Println("  drift       follow out-of-band publish time edits")
	fmt.Println("  deletions   mark records whose remote video vanished")
	fmt.Println("  audit       remove dead report rows (--dry-run)")
	fmt.Println("  views       refresh view counts in the report")
	fmt.Println("  sheet-sync  backfill report rows for published records")
	fmt.Println()
	fmt.Println("Operations:")
	fmt.Println("  snapshot    per-record publish-eligibility dump")
	fmt.Println("  manage      interactive ledger browser (cancel / reschedule)")
	fmt.Println("  doctor      probe the database, Drive folder and report sheet")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Settings come from the environment (or a local .env file)")
	fmt.Println("  - Use --json on one-shot jobs for machine-readable output")
}
