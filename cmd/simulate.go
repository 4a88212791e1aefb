// cmd/simulate.go

package main

import (
	"AveCache/pkg/transfer"
	"AveCache/pkg/utils"
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
)

func simulateFlags() *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "replay a trace of range fetches and report the coverage",
		ArgsUsage: "TRACE (or - for stdin)",
		Action:    simulate,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the report as JSON",
			},
		},
	}
}

// One trace line is either a fetched range or a query:
//
//	100-200    insert [100,200)
//	100+50     insert [100,150) that goes to end of file
//	@120       query the offset
//
// Blank lines and lines starting with # are skipped.
type traceOp struct {
	query  bool
	offset uint64
	start  uint64
	length uint64
	whole  bool
}

func parseTraceLine(line string) (traceOp, error) {
	var op traceOp
	line = strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(line, "@"); ok {
		off, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			return op, fmt.Errorf("offset %q: %s", rest, err)
		}
		op.query = true
		op.offset = off
		return op, nil
	}
	sep := "-"
	if strings.Contains(line, "+") {
		sep = "+"
		op.whole = true
	}
	a, b, ok := strings.Cut(line, sep)
	if !ok {
		return op, fmt.Errorf("expect START%sEND or @OFFSET, got %q", sep, line)
	}
	start, err := strconv.ParseUint(strings.TrimSpace(a), 10, 64)
	if err != nil {
		return op, fmt.Errorf("start %q: %s", a, err)
	}
	second, err := strconv.ParseUint(strings.TrimSpace(b), 10, 64)
	if err != nil {
		return op, fmt.Errorf("end %q: %s", b, err)
	}
	op.start = start
	if op.whole {
		op.length = second
	} else {
		if second < start {
			return op, fmt.Errorf("end %d before start %d", second, start)
		}
		op.length = second - start
	}
	return op, nil
}

type queryResult struct {
	Offset uint64
	Valid  bool
	Run    uint64
}

type simReport struct {
	Inserts   int
	Entries   int
	SpaceUsed uint64
	Coverage  string
	Queries   []queryResult `json:",omitempty"`
}

// fillPattern writes recognizable content so queried bytes can be traced back
// to the fetch that produced them.
func fillPattern(buf []byte, start uint64) {
	for i := range buf {
		buf[i] = byte(start + uint64(i))
	}
}

func simulate(ctx *cli.Context) error {
	setLoggerLevel(ctx)
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("TRACE is needed")
	}
	name := ctx.Args().Get(0)
	var in io.Reader = os.Stdin
	if name != "-" {
		if !utils.Exists(name) {
			return fmt.Errorf("no such trace: %s", name)
		}
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	sd := transfer.NewSparseData()
	var report simReport
	progress, bar := utils.NewDynProgressBar("replaying trace: ", ctx.Bool("json"))
	scanner := bufio.NewScanner(in)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		op, err := parseTraceLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %s", lineno, err)
		}
		bar.SetTotal(bar.Current()+1, false)
		if op.query {
			data, run := sd.DataAt(op.offset)
			report.Queries = append(report.Queries, queryResult{op.offset, data != nil, run})
			logger.Debugf("@%d -> valid=%v run=%d", op.offset, data != nil, run)
		} else {
			var r transfer.Range
			if op.whole {
				r = transfer.NewWholeFileRange(op.start, op.length)
			} else {
				r = transfer.NewRange(op.start, op.start+op.length)
			}
			d := transfer.NewDenseData(r)
			fillPattern(d.WritableData(), op.start)
			sd.AddValidData(d)
			report.Inserts++
		}
		bar.Increment()
	}
	bar.SetTotal(bar.Current(), true)
	progress.Wait()
	if err := scanner.Err(); err != nil {
		return err
	}

	report.Entries = sd.Count()
	report.SpaceUsed = sd.SpaceUsed()
	report.Coverage = sd.DebugString()
	if ctx.Bool("json") {
		printJson(&report)
	} else {
		fmt.Printf("inserts:    %d\n", report.Inserts)
		fmt.Printf("entries:    %d\n", report.Entries)
		fmt.Printf("space used: %d\n", report.SpaceUsed)
		fmt.Printf("coverage:   %s\n", report.Coverage)
		for _, q := range report.Queries {
			if q.Valid {
				fmt.Printf("@%d: %d valid bytes\n", q.Offset, q.Run)
			} else if q.Run > 0 {
				fmt.Printf("@%d: gap of %d bytes\n", q.Offset, q.Run)
			} else {
				fmt.Printf("@%d: nothing known\n", q.Offset)
			}
		}
	}
	return nil
}

func printJson(v interface{}) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatalf("json: %s", err)
	}
	fmt.Println(string(output))
}
