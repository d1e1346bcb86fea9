package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type Answer struct {
	Key      string `json:"key"`
	Question string `json:"question,omitempty"`
	Value    string `json:"value"`
}

// Profile is the caller's profile as returned by /profiles/me.
type Profile struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Mail      string   `json:"mail"`
	Content   string   `json:"content"`
	Answers   []Answer `json:"answers"`
	Social    Social   `json:"social"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

type FormField struct {
	Key       string   `json:"key"`
	Question  string   `json:"question"`
	Kind      string   `json:"kind"`
	MinLength int      `json:"min_length"`
	Required  bool     `json:"required"`
	Options   []string `json:"options,omitempty"`
}

type Form struct {
	Version int         `json:"version"`
	Fields  []FormField `json:"fields"`
}

type updateProfileRequest struct {
	Name    string   `json:"name,omitempty"`
	Answers []Answer `json:"answers"`
	Social  *Social  `json:"social,omitempty"`
}

type updateContentRequest struct {
	Content string  `json:"content"`
	Social  *Social `json:"social,omitempty"`
}

// ProfileCmd creates the profile command with subcommands.
func ProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit your profile",
		Long:  "Show your profile, answer the profile form, or replace your profile text.",
	}

	cmd.AddCommand(ProfileShowCmd())
	cmd.AddCommand(ProfileFormCmd())
	cmd.AddCommand(ProfileAnswerCmd())
	cmd.AddCommand(ProfileContentCmd())

	return cmd
}

func ProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var me Profile
			if err := api.Get(ctxOf(cmd), "/profiles/me", &me); err != nil {
				return fmt.Errorf("failed to load profile: %w", err)
			}
			return printProfile(os.Stdout, &me, outputJSON)
		},
	}
}

func ProfileFormCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "form",
		Short: "Show the profile form questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var form Form
			if err := api.Get(ctxOf(cmd), "/form", &form); err != nil {
				return fmt.Errorf("failed to load form: %w", err)
			}
			if outputJSON {
				data, _ := json.MarshalIndent(form, "", "  ")
				fmt.Println(string(data))
				return nil
			}
			for _, f := range form.Fields {
				required := ""
				if f.Required {
					required = " (required)"
				}
				fmt.Printf("%s%s\n  %s\n", f.Key, required, f.Question)
				if len(f.Options) > 0 {
					fmt.Printf("  options: %s\n", strings.Join(f.Options, ", "))
				}
			}
			return nil
		},
	}
}

func ProfileAnswerCmd() *cobra.Command {
	var (
		name    string
		answers []string
		social  Social
	)

	cmd := &cobra.Command{
		Use:   "answer",
		Short: "Submit form answers",
		Long:  "Submit answers as key=value pairs. The server rebuilds and reindexes your profile text from them.",
		Example: `  shipba profile answer -a hobbies="ajedrez, tenis" -a work="programador"
  shipba profile answer --name "Ana" -a about="Cocino pastas caseras" --telegram ana_cocina`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			parsed, err := parseAnswers(answers)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			req := updateProfileRequest{Name: name, Answers: parsed, Social: socialIfSet(social)}
			var me Profile
			if err := api.Put(ctxOf(cmd), "/profiles/me", req, &me); err != nil {
				return fmt.Errorf("failed to update profile: %w", err)
			}
			return printProfile(os.Stdout, &me, outputJSON)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringArrayVarP(&answers, "answer", "a", nil, "Answer as key=value (repeatable)")
	addSocialFlags(cmd, &social)
	cmd.MarkFlagRequired("answer")

	return cmd
}

func ProfileContentCmd() *cobra.Command {
	var (
		file   string
		social Social
	)

	cmd := &cobra.Command{
		Use:   "content [text]",
		Short: "Replace your profile text",
		Long:  "Replace your free-form profile text. Pass the text as an argument, or read it with --file (- for stdin).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			content, err := readContent(args, file, os.Stdin)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var me Profile
			req := updateContentRequest{Content: content, Social: socialIfSet(social)}
			if err := api.Put(ctxOf(cmd), "/profiles/me/content", req, &me); err != nil {
				return fmt.Errorf("failed to update profile: %w", err)
			}
			return printProfile(os.Stdout, &me, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read content from file (- for stdin)")
	addSocialFlags(cmd, &social)

	return cmd
}

func addSocialFlags(cmd *cobra.Command, social *Social) {
	cmd.Flags().StringVar(&social.X, "x", "", "X handle")
	cmd.Flags().StringVar(&social.Telegram, "telegram", "", "Telegram handle")
	cmd.Flags().StringVar(&social.Instagram, "instagram", "", "Instagram handle")
}

func socialIfSet(s Social) *Social {
	if s == (Social{}) {
		return nil
	}
	return &s
}

func parseAnswers(pairs []string) ([]Answer, error) {
	answers := make([]Answer, 0, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid answer %q (expected key=value)", pair)
		}
		answers = append(answers, Answer{Key: key, Value: strings.TrimSpace(value)})
	}
	return answers, nil
}

func readContent(args []string, file string, stdin io.Reader) (string, error) {
	if len(args) == 1 && file != "" {
		return "", fmt.Errorf("pass the content as an argument or with --file, not both")
	}
	if len(args) == 1 {
		return args[0], nil
	}
	if file == "" {
		return "", fmt.Errorf("content is required (argument or --file)")
	}

	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	return string(data), nil
}

func printProfile(w io.Writer, p *Profile, outputJSON bool) error {
	if outputJSON {
		data, _ := json.MarshalIndent(p, "", "  ")
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprintf(w, "%s <%s>\n", p.Name, p.Mail)
	fmt.Fprintf(w, "ID: %s\n", p.ID)
	if handles := formatSocial(p.Social); handles != "" {
		fmt.Fprintf(w, "Contact: %s\n", handles)
	}
	if strings.TrimSpace(p.Content) == "" {
		fmt.Fprintln(w, "\nYour profile is empty. Run 'shipba profile form' to see the questions.")
		return nil
	}
	fmt.Fprintf(w, "\n%s\n", p.Content)
	return nil
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
