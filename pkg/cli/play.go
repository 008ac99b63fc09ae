package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
	"github.com/m-mizutani/plenty/pkg/usecase/play"
	"github.com/urfave/cli/v3"
)

func playCommand() *cli.Command {
	var (
		cfg      config
		saveFile string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "save-file",
			Usage:       "File keeping your unlocked elements",
			Value:       "plenty_save.json",
			Sources:     cli.EnvVars("PLENTY_SAVE_FILE"),
			Destination: &saveFile,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, combineFlags(&cfg)...)

	return &cli.Command{
		Name:  "play",
		Usage: "Play in the terminal: combine elements to unlock new ones",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			w := c.Root().Writer

			ctx, closeLog, err := cfg.setupLogger(ctx, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			uc, repo, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			session, err := play.New(uc, play.WithSaveFile(saveFile))
			if err != nil {
				return goerr.Wrap(err, "failed to start game")
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          w,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize prompt")
			}
			defer rl.Close()

			fmt.Fprintf(w, "Combine two elements with \"A + B\". Type 'list' to see your elements, 'exit' to quit.\n")
			printElements(w, session.Unlocked())

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if len(line) == 0 {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				line = strings.TrimSpace(line)
				switch line {
				case "":
					continue
				case "exit", "quit":
					return nil
				case "list":
					printElements(w, session.Unlocked())
					continue
				}

				a, b, ok := play.ParseInput(line)
				if !ok {
					fmt.Fprintf(w, "Type two elements like \"Water + Fire\"\n")
					continue
				}

				spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
				spin.Suffix = " combining..."
				spin.Start()
				result, err := session.Combine(ctx, a, b)
				spin.Stop()

				if errors.Is(err, play.ErrNotUnlocked) {
					fmt.Fprintf(w, "You have not unlocked both %q and %q yet\n", a, b)
					continue
				}
				if err != nil {
					return err
				}

				printResult(w, result)
			}

			return nil
		},
	}
}

func printElements(w io.Writer, elements []model.Element) {
	names := make([]string, len(elements))
	for i, e := range elements {
		names[i] = e.Emoji + " " + e.Name
	}
	fmt.Fprintf(w, "%s\n", strings.Join(names, "  "))
}

func printResult(w io.Writer, result *play.Result) {
	outcome := result.Outcome
	switch {
	case outcome.OK():
		element := outcome.Combination.Element()
		switch {
		case outcome.IsNew:
			fmt.Fprintf(w, "%s %s (first discovery!)\n", element.Emoji, element.Name)
		case result.Discovered:
			fmt.Fprintf(w, "%s %s (new)\n", element.Emoji, element.Name)
		default:
			fmt.Fprintf(w, "%s %s\n", element.Emoji, element.Name)
		}
	case outcome.Kind == model.OutcomeRejected:
		fmt.Fprintf(w, "Nothing happened\n")
	default:
		fmt.Fprintf(w, "Something went wrong, try again\n")
	}
}
