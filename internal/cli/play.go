package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"studytec-client/internal/app"
	"studytec-client/internal/domain"
)

type playOptions struct {
	apiKey string
	user   string
	pass   string
	code   string
}

// NewPlayCmd runs a quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play <topic>",
		Short: "Generate a lesson and take its quiz in the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			client := rt.newClient()
			defer client.Close()
			if opts.apiKey != "" {
				client.Configure(app.Settings{BackendURL: client.Settings().BackendURL, APIKey: opts.apiKey})
			}
			return play(cmd.Context(), client, opts, strings.Join(args, " "), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.apiKey, "key", "", "AI API key (overrides config and STUDYTEC_AI_KEY)")
	cmd.Flags().StringVar(&opts.user, "user", "", "log in with this username before playing")
	cmd.Flags().StringVar(&opts.pass, "pass", "", "password for --user")
	cmd.Flags().StringVar(&opts.code, "class", "", "join a class with this code before playing")
	return cmd
}

func play(ctx context.Context, client *app.Client, opts playOptions, topic string, in io.Reader, out io.Writer) error {
	lines := bufio.NewScanner(in)
	prompt := func(label string) (string, error) {
		fmt.Fprint(out, label)
		if !lines.Scan() {
			if err := lines.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return strings.TrimSpace(lines.Text()), nil
	}

	if opts.user != "" {
		actor, err := client.Login(ctx, domain.Credentials{User: opts.user, Pass: opts.pass})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Logged in as %s (%s)\n", actor.Name(), actor.Role)
	} else if opts.code != "" {
		ref, err := client.JoinClass(ctx, opts.code)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Joined class %s\n", ref.Name)
	}

	artifact, err := client.Generate(ctx, topic)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n# %s\n\n%s\n\n%s\n\n%s\n\n",
		artifact.Topic, artifact.Explanation.Simple, artifact.Explanation.Technical, artifact.Explanation.Advanced)

	state, err := client.StartQuiz()
	if err != nil {
		return err
	}
	for state.Phase == domain.QuizAwaitingIdentity {
		name, err := prompt("Your name: ")
		if err != nil {
			client.CancelIdentity()
			return err
		}
		email, err := prompt("Your email (optional): ")
		if err != nil {
			client.CancelIdentity()
			return err
		}
		state, err = client.RegisterForQuiz(ctx, name, email)
		if err != nil && !errors.Is(err, domain.ErrRegistration) {
			return err
		}
		if err != nil {
			fmt.Fprintf(out, "%s\n", lastMessage(client))
		}
	}

	for {
		state, question := client.Quiz()
		if question == nil {
			break
		}
		fmt.Fprintf(out, "Question %d/%d (%s)\n%s\n", state.CurrentIndex+1, state.Total, question.Difficulty, question.Text)
		for i, option := range question.Options {
			fmt.Fprintf(out, "  %s) %s\n", domain.OptionLabel(i), option)
		}
		answer, err := prompt("> ")
		if err != nil {
			client.ExitQuiz()
			return err
		}
		if _, err := client.SubmitAnswer(strings.ToUpper(answer)); err != nil {
			return err
		}
	}

	final, _ := client.Quiz()
	fmt.Fprintf(out, "\nScore: %d/%d (%d%%)\n", final.Score, final.Total, final.Percentage())
	ids := make([]int, 0, len(artifact.AnswerKey))
	for id := range artifact.AnswerKey {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		entry := artifact.AnswerKey[id]
		fmt.Fprintf(out, "  %d. %s: %s\n", id, entry.Correct, entry.Explanation)
	}
	client.Wait()
	return nil
}

func lastMessage(client *app.Client) string {
	active := client.Notifications().Active()
	if len(active) == 0 {
		return ""
	}
	return active[len(active)-1].Message
}
