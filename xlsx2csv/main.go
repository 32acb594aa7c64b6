// Copyright 2026, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Command xlsx2csv converts between XLSX workbooks and CSV files,
// streaming row by row so that memory stays flat however big the
// input is.
//
//	xlsx2csv [flags] <input> <output> <csv_to_xlsx|xlsx_to_csv>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/UNO-SOFT/zlog/v2"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/UNO-SOFT/xlsxcsv"
	"github.com/UNO-SOFT/xlsxcsv/xlsx"
)

var verbose zlog.VerboseVar
var logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()

const (
	modeCsvToXlsx = "csv_to_xlsx"
	modeXlsxToCsv = "xlsx_to_csv"
)

func main() {
	os.Exit(Main())
}

func Main() int {
	fs := flag.NewFlagSet("xlsx2csv", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	flagCharset := fs.String("charset", xlsxcsv.EncName, "csv charset name")
	flagRoot := fs.String("root", "", "project root for path sandboxing (default: working directory)")

	rc := 0
	app := ffcli.Command{Name: "xlsx2csv", FlagSet: fs,
		ShortUsage: "xlsx2csv [flags] <input> <output> <csv_to_xlsx|xlsx_to_csv>",
		Exec: func(ctx context.Context, args []string) error {
			input, output, mode := "./test.csv", "./output.xlsx", modeCsvToXlsx
			if len(args) > 0 {
				input = args[0]
			}
			if len(args) > 1 {
				output = args[1]
			}
			if len(args) > 2 {
				mode = args[2]
			}
			if mode != modeCsvToXlsx && mode != modeXlsxToCsv {
				fmt.Fprintf(os.Stderr, "unknown mode %q\n", mode)
				rc = 1
				return nil
			}
			if _, err := os.Stat(input); err != nil {
				fmt.Fprintf(os.Stderr, "input %q: %v\n", input, err)
				rc = 1
				return nil
			}

			cv := xlsx.Converter{
				ProjectRoot: *flagRoot,
				CSV:         xlsxcsv.ReadOptions{Charset: *flagCharset},
				Logger:      logger,
			}
			start := time.Now()
			var err error
			if mode == modeCsvToXlsx {
				err = cv.FromCSV(ctx, input, output)
			} else {
				err = cv.ToCSV(ctx, input, output)
			}
			elapsed := time.Since(start)

			if err != nil {
				logger.Error("convert", "mode", mode, "input", input, "output", output, "error", err)
				fmt.Println("FAILED")
			} else {
				fmt.Println("SUCCESS")
			}
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			fmt.Printf("time:        %s\nheap:        %d KiB\ntotal alloc: %d KiB\nsys:         %d KiB\n",
				elapsed.Round(time.Millisecond),
				ms.HeapAlloc>>10, ms.TotalAlloc>>10, ms.Sys>>10)
			return nil
		},
	}
	if err := app.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := app.Run(ctx); err != nil {
		logger.Error("MAIN", "error", err)
		return 1
	}
	return rc
}
