package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-proctor/runner"
	"github.com/ethereum-optimism/infra/op-proctor/types"
)

// Options vary the level of detail in plaintext reports.
type Options struct {
	// OneLine prints each entry as a single evaluation/status/description
	// line instead of a detail block.
	OneLine bool
	// FailDetailOnly suppresses detail fields for entries that passed.
	FailDetailOnly bool
	// NoValues replaces expected and actual values with their types, for
	// reports that must not leak data.
	NoValues bool
	// ShowStacks appends captured stack snapshots under one-line entries.
	ShowStacks bool
}

// Reporter writes formatted plaintext reports of a run log: a summary, and
// optionally the full entry-by-entry log. The log may still be running;
// entries that have not settled report their current state.
type Reporter struct {
	log *runner.Log
}

// NewReporter creates a reporter over rl.
func NewReporter(rl *runner.Log) (*Reporter, error) {
	if rl == nil {
		return nil, fmt.Errorf("run log is required")
	}
	return &Reporter{log: rl}, nil
}

// Report writes the summary followed by the full entry log.
func (r *Reporter) Report(w io.Writer, opts Options) error {
	var b strings.Builder
	r.writeSummary(&b)
	b.WriteString("\n\nTEST LOG\n")

	entries := r.log.Entries()
	numWidth := len(strconv.Itoa(len(entries)))
	for i, res := range entries {
		if opts.OneLine {
			fmt.Fprintf(&b, "%*d | ", numWidth, i+1)
			r.writeEntryLine(&b, res, opts)
		} else {
			fmt.Fprintf(&b, "\nTEST LOG ENTRY %d\n", i+1)
			r.writeEntry(&b, res, opts)
		}
	}

	b.WriteString("\nEND OF TEST LOG\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Summary writes only the run summary: evaluation counts, tested item
// types, environment, and timing.
func (r *Reporter) Summary(w io.Writer) error {
	var b strings.Builder
	r.writeSummary(&b)
	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Reporter) writeSummary(b *strings.Builder) {
	var passed, failed, noResult int
	var itemTypes []string
	seenTypes := make(map[string]bool)

	for _, res := range r.log.Entries() {
		eval, err := res.Evaluation()
		if err != nil {
			eval = types.EvalNoResult
		}
		switch eval {
		case types.EvalPassed:
			passed++
		case types.EvalFailed:
			failed++
		default:
			noResult++
		}
		if it := res.ItemType(); it != "" && !seenTypes[it] {
			seenTypes[it] = true
			itemTypes = append(itemTypes, it)
		}
	}

	b.WriteString("TEST SUMMARY\n\n")
	fmt.Fprintf(b, "Test name: %s\n\n", r.log.Name())
	fmt.Fprintf(b, "Results: Passed: %d, Failed: %d, No result: %d\n\n", passed, failed, noResult)

	b.WriteString("Item types tested:\n")
	for _, it := range itemTypes {
		fmt.Fprintf(b, "* %s\n", it)
	}
	b.WriteString("\n")

	fmt.Fprintf(b, "Environment:       %s\n", strings.Join(r.log.Environment(), "; "))
	fmt.Fprintf(b, "Test start time:   %s\n", formatTime(r.log.StartTime()))
	if end := r.log.EndTime(); end.IsZero() {
		b.WriteString("Test end time:     (run in progress)\n")
	} else {
		fmt.Fprintf(b, "Test end time:     %s\n", formatTime(end))
	}
	fmt.Fprintf(b, "Test elapsed time: %s\n", formatDuration(r.log.Elapsed()))
}

// writeCase describes the declaration side of an entry.
func (r *Reporter) writeCase(b *strings.Builder, spec types.CaseSpec, opts Options) {
	fmt.Fprintf(b, "   Test case description:   %s\n", spec.Description)
	fmt.Fprintf(b, "   Declared test item type: %s\n", spec.ItemType)
	switch spec.Expect.Kind() {
	case types.ExpectKindFault:
		fmt.Fprintf(b, "   Expected fault:          %s\n", describeFaultTarget(spec.Expect.Target()))
	case types.ExpectKindReturn:
		if opts.NoValues {
			fmt.Fprintf(b, "   Expected return type:    %s\n", describeValueType(spec.Expect.Value()))
		} else {
			fmt.Fprintf(b, "   Expected return value:   %s\n", describeValue(spec.Expect.Value()))
		}
	default:
		b.WriteString("   Expected return value:   nil\n")
	}
	if spec.Budget > 0 {
		fmt.Fprintf(b, "   Budget:                  %d ms\n", spec.Budget.Milliseconds())
	}
}

// writeEntry writes the detail block for one entry.
func (r *Reporter) writeEntry(b *strings.Builder, res *runner.Result, opts Options) {
	b.WriteString("Test case:\n")
	r.writeCase(b, res.Case(), opts)
	b.WriteString("Test procedure result:\n")

	eval, evalErr := res.Evaluation()
	showDetail := !opts.FailDetailOnly || (evalErr == nil && eval == types.EvalFailed)

	if it := res.ItemType(); it != "" && showDetail {
		fmt.Fprintf(b, "   Actual test item type:   %s\n", it)
	}
	fmt.Fprintf(b, "   Test procedure status:   %s\n", res.Status())
	if v, ok := res.Returned(); ok && showDetail {
		if opts.NoValues {
			fmt.Fprintf(b, "   Actual return type:      %s\n", describeValueType(v))
		} else {
			fmt.Fprintf(b, "   Actual return value:     %s\n", describeValue(v))
		}
	}
	if fault := res.Fault(); fault != nil && showDetail {
		if ts, ok := fault.(*types.TimeoutStack); ok {
			fmt.Fprintf(b, "   %s", stripANSIEscapeSequences(ts.Error()))
			if ts.Stack != "" {
				b.WriteString("; stack at timeout:\n")
				writeIndented(b, ts.Stack, "      ")
			} else {
				b.WriteString("\n")
			}
		} else {
			fmt.Fprintf(b, "   Fault:                   %s\n", stripANSIEscapeSequences(fault.Error()))
		}
	}
	if res.Status() == types.StatusCompleteNormal {
		if rt, err := res.RunTime(); err == nil {
			fmt.Fprintf(b, "   Test procedure run time: %d ms\n", rt.Milliseconds())
		}
	}
	if evalErr == nil {
		fmt.Fprintf(b, "   Evaluation:              %s\n", eval)
	}
}

// writeEntryLine writes the one-line form: a 9-character evaluation column,
// a 24-character status column, and the description.
func (r *Reporter) writeEntryLine(b *strings.Builder, res *runner.Result, opts Options) {
	var evalCol string
	if eval, err := res.Evaluation(); err == nil {
		evalCol = eval.Display()
	}

	var statusCol string
	status := res.Status()
	eval, _ := res.Evaluation()
	fault := res.Fault()
	switch {
	case status == types.StatusCompleteNormal && eval == types.EvalPassed:
		rt, _ := res.RunTime()
		statusCol = fmt.Sprintf("Run time: %d ms", rt.Milliseconds())
	case status == types.StatusCompleteNormal && eval == types.EvalFailed:
		statusCol = "Incorrect return value"
	case status == types.StatusCompleteAbnormal && fault != nil:
		statusCol = faultTypeName(fault)
	case status == types.StatusTimedOut:
		statusCol = fmt.Sprintf("Timed out > %d ms", res.Case().Budget.Milliseconds())
	default:
		statusCol = status.Display()
	}

	fmt.Fprintf(b, "%-9.9s | %-24.24s | %s\n", evalCol, statusCol, res.Case().Description)

	if fault != nil && opts.ShowStacks {
		fmt.Fprintf(b, "      %s\n", stripANSIEscapeSequences(fault.Error()))
		if ts, ok := fault.(*types.TimeoutStack); ok && ts.Stack != "" {
			writeIndented(b, ts.Stack, "      ")
		}
	}
}

func writeIndented(b *strings.Builder, text, indent string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func describeValue(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T: %v", v, v)
}

func describeValueType(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

func describeFaultTarget(target error) string {
	if target == nil {
		return "nil"
	}
	return fmt.Sprintf("%s (%T)", target.Error(), target)
}

// faultTypeName is the bare type name of a fault, without package or
// pointer decoration.
func faultTypeName(err error) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05 MST")
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%d.%03d s", d/time.Second, (d%time.Second)/time.Millisecond)
}

// stripANSIEscapeSequences removes terminal color and style sequences from
// fault text before it lands in a report file.
func stripANSIEscapeSequences(s string) string {
	return stripansi.Strip(s)
}
