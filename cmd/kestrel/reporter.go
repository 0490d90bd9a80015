package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/kestrelci/kestrel/internal/runner"
	"github.com/kestrelci/kestrel/pkg/models"
)

var (
	successColor = color.New(color.FgGreen)
	failedColor  = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
	mutedColor   = color.New(color.FgHiBlack)
)

// reportEvents prints runner events as they arrive, one line each.
// It returns when the event channel closes.
func reportEvents(events <-chan runner.Event, colorEnabled bool) {
	if !colorEnabled {
		color.NoColor = true
	}

	for ev := range events {
		switch ev.Type {
		case runner.EventRunStarted:
			fmt.Printf("run %s started: %s\n", shortID(ev.RunID), ev.Message)

		case runner.EventRunFinished:
			c := statusColor(ev.Status)
			c.Printf("run %s %s", shortID(ev.RunID), ev.Status)
			if ev.Duration > 0 {
				fmt.Printf(" in %s", ev.Duration.Round(timeUnit(ev)))
			}
			fmt.Println()

		case runner.EventJobStarted:
			fmt.Printf("▸ %s\n", ev.Cell)

		case runner.EventJobFinished:
			c := statusColor(ev.Status)
			c.Printf("%s %s %s", statusMark(ev.Status), ev.Cell, ev.Status)
			if ev.Duration > 0 {
				fmt.Printf(" (%s)", ev.Duration.Round(timeUnit(ev)))
			}
			fmt.Println()
			if ev.Err != nil {
				failedColor.Printf("  %v\n", ev.Err)
			}

		case runner.EventJobSkipped:
			mutedColor.Printf("- %s skipped\n", ev.Cell)

		case runner.EventStepFinished:
			switch ev.Status {
			case models.StatusFailed:
				failedColor.Printf("  ✗ %s › %s\n", ev.Cell, ev.Step)
				if ev.Err != nil {
					failedColor.Printf("    %v\n", ev.Err)
				}
			case models.StatusWarning:
				warningColor.Printf("  ! %s › %s (advisory)\n", ev.Cell, ev.Step)
			}

		case runner.EventStepOutput:
			if ev.Stderr {
				fmt.Fprintf(os.Stderr, "  %s │ %s\n", ev.Cell, ev.Line)
			} else {
				fmt.Printf("  %s │ %s\n", ev.Cell, ev.Line)
			}

		case runner.EventWarning:
			warningColor.Printf("warning: %s", ev.Message)
			if ev.Err != nil {
				warningColor.Printf(": %v", ev.Err)
			}
			fmt.Println()
		}
	}
}

// timeUnit picks a display granularity so short runs keep millisecond
// precision without long runs printing noise.
func timeUnit(ev runner.Event) time.Duration {
	if ev.Duration >= time.Minute {
		return time.Second
	}
	return time.Millisecond
}

func statusColor(s models.Status) *color.Color {
	switch s {
	case models.StatusSuccess:
		return successColor
	case models.StatusFailed, models.StatusCancelled:
		return failedColor
	case models.StatusWarning:
		return warningColor
	default:
		return mutedColor
	}
}

func statusMark(s models.Status) string {
	switch s {
	case models.StatusSuccess:
		return "✓"
	case models.StatusFailed:
		return "✗"
	case models.StatusWarning:
		return "!"
	case models.StatusCancelled:
		return "⊘"
	default:
		return "-"
	}
}
