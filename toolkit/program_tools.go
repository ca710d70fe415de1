package toolkit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/deskagent/proc"
	"github.com/hupe1980/deskagent/tool"
)

func (t *Toolkit) runProgramTool() tool.Tool {
	return tool.Tool{
		Name:        "run_program",
		Description: "Run any installed program and return its output.",
		Category:    CategoryPrograms,
		Params: []tool.Param{
			{Name: "command", Type: tool.TypeString, Description: "The executable name or full path.", Required: true},
			{Name: "args", Type: tool.TypeString, Description: "Space-separated arguments (optional).", Default: ""},
			{Name: "input_data", Type: tool.TypeString, Description: "Text to send to the program's stdin.", Default: ""},
			{Name: "timeout", Type: tool.TypeFloat, Description: "Seconds before giving up (default 30).", Default: 30.0},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			timeout := floatArg(args, "timeout", 30)

			res := t.procs.Run(ctx, proc.RunSpec{
				Command:   strArg(args, "command"),
				Args:      strings.Fields(strArg(args, "args")),
				InputData: strArg(args, "input_data"),
				Timeout:   time.Duration(timeout * float64(time.Second)),
			})

			if res.TimedOut {
				return "", nil, fmt.Errorf("Command timed out after %vs", timeout)
			}

			combined := strings.TrimSpace(res.Stdout + res.Stderr)

			if res.ExitCode == 0 {
				output := combined
				if output == "" {
					output = "(no output)"
				}

				payload := map[string]any{
					"returncode": res.ExitCode,
					"stdout":     res.Stdout,
					"stderr":     res.Stderr,
				}

				return output, payload, nil
			}

			return combined, map[string]any{"returncode": res.ExitCode}, fmt.Errorf("Exited with code %d", res.ExitCode)
		},
	}
}

func (t *Toolkit) launchProgramTool() tool.Tool {
	return tool.Tool{
		Name:        "launch_program",
		Description: "Launch an application in the background (detached, non-blocking).",
		Category:    CategoryPrograms,
		Params: []tool.Param{
			{Name: "command", Type: tool.TypeString, Description: "Executable name or path.", Required: true},
			{Name: "args", Type: tool.TypeString, Description: "Space-separated arguments.", Default: ""},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			res := t.procs.Launch(ctx, proc.LaunchSpec{
				Command: strArg(args, "command"),
				Args:    strings.Fields(strArg(args, "args")),
			})

			if !res.Success {
				return "", nil, fmt.Errorf("%s", res.Error)
			}

			return res.String(), map[string]any{"pid": res.PID}, nil
		},
	}
}

func (t *Toolkit) listProgramsTool() tool.Tool {
	return tool.Tool{
		Name:        "list_programs",
		Description: "List running programs / processes, optionally filtered by name.",
		Category:    CategoryPrograms,
		Params: []tool.Param{
			{Name: "name_filter", Type: tool.TypeString, Description: "Filter by program name (optional).", Default: ""},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			filter := strArg(args, "name_filter")

			var (
				procs []proc.ProcessInfo
				err   error
			)

			if filter != "" {
				procs, err = t.procs.FindByName(ctx, filter)
			} else {
				procs, err = t.procs.List(ctx)
			}
			if err != nil {
				return "", nil, err
			}

			top := proc.TopByCPU(procs, 20)

			lines := make([]string, 0, len(top))
			payload := make([]map[string]any, 0, len(top))

			for _, p := range top {
				lines = append(lines, fmt.Sprintf("  PID %6d  CPU %5.1f%%  MEM %6.0f MB  %s",
					p.PID, p.CPUPercent, p.MemoryMB, p.Name))
				payload = append(payload, map[string]any{"pid": p.PID, "name": p.Name})
			}

			output := t.procs.Summary(procs) + "\n\nTop processes by CPU:\n" + strings.Join(lines, "\n")

			return output, payload, nil
		},
	}
}
