package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"qartod/check"
	"qartod/enqueue"
	"qartod/run"
	"qartod/schema"
	"qartod/utils"
	"qartod/work"
)

type CmdArgs struct {
	Run     *run.Config     `arg:"subcommand" help:"Apply QARTOD QC to netCDF files"`
	Enqueue *enqueue.Config `arg:"subcommand" help:"Find the files that need QC and add them to the job queue"`
	Work    *work.Config    `arg:"subcommand" help:"Process the files in the job queue"`
	Schema  *schema.Config  `arg:"subcommand" help:"Create or drop the job queue schema"`
	Check   *check.Config   `arg:"subcommand" help:"Print the configuration resolved for a station"`
	Verbose bool            `arg:"-v,--verbose" help:"Turn on logging"`
	LogFile string          `arg:"--log-file" help:"Write the logs to this file instead of stderr"`
}

func (CmdArgs) Description() string {
	return "Apply QARTOD quality control flags to netCDF time series"
}

func main() {
	// The following env variables can be used instead of the flags:
	//   - QARTOD_CONFIG: configuration spreadsheet
	//   - QARTOD_QUEUE_CONN: connection string of the job queue
	//   - QARTOD_RATE_INTERVAL: period of the rate of change thresholds
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Println(err)
		return
	}

	args := CmdArgs{}
	parser := arg.MustParse(&args)
	os.Exit(execute(&args, parser))
}

func execute(args *CmdArgs, parser *arg.Parser) int {
	utils.SetupLogger(os.Stderr, args.Verbose)
	if args.LogFile != "" {
		closeLog := utils.SetLogFile(args.LogFile, args.Verbose)
		defer closeLog()
	}

	var err error
	switch {
	case args.Run != nil:
		err = args.Run.Execute()
	case args.Enqueue != nil:
		err = args.Enqueue.Execute()
	case args.Work != nil:
		err = args.Work.Execute()
	case args.Schema != nil:
		err = args.Schema.Execute()
	case args.Check != nil:
		err = args.Check.Execute()
	default:
		fmt.Println("Error: passing a subcommand is required.")
		fmt.Println()
		parser.WriteHelp(os.Stdout)
		return 1
	}

	if err != nil {
		slog.Error(err.Error())
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
