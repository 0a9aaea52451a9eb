package installer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/InkyQuill/gitlab-mr-review-mcp/pkg/gitlab"
)

// ServerName is the key the server is registered under in client configs.
const ServerName = "gitlab-mr-review"

// Environments are the MCP clients the installer can configure.
var Environments = []string{
	"VS Code",
	"Claude Desktop",
	"Claude Code",
	"Cursor",
}

// PromptConfig holds the answers collected by the installer.
type PromptConfig struct {
	Mode           string // "local" or "docker"
	GitLabURL      string
	Token          string
	TokenType      gitlab.TokenType
	ReadOnly       bool
	StoreInKeyring bool
}

// Prompter asks the installer questions. Secrets are read without echo when
// the input is a terminal.
type Prompter struct {
	in         *bufio.Reader
	out        io.Writer
	readSecret func() (string, error)
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out}
	p.readSecret = p.readLine
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.readSecret = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(p.out)
			return string(b), err
		}
	}
	return p
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *Prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	return p.readLine()
}

func (p *Prompter) askYesNo(question string) (bool, error) {
	answer, err := p.ask(question)
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// PromptUser collects the server settings.
func (p *Prompter) PromptUser() (*PromptConfig, error) {
	cfg := &PromptConfig{}

	mode, err := p.ask("Select mode [local/docker] (default: local): ")
	if err != nil {
		return nil, err
	}
	switch mode {
	case "", "local":
		cfg.Mode = "local"
	case "docker":
		cfg.Mode = "docker"
	default:
		return nil, fmt.Errorf("invalid mode: %s. Must be 'local' or 'docker'", mode)
	}

	url, err := p.ask("GitLab URL (default: https://gitlab.com): ")
	if err != nil {
		return nil, err
	}
	if url == "" {
		url = "https://gitlab.com"
	}
	if _, err := gitlab.NormalizeAPIURL(url); err != nil {
		return nil, err
	}
	cfg.GitLabURL = url

	tokenType, err := p.ask("Token type [private/oauth/job] (default: private): ")
	if err != nil {
		return nil, err
	}
	switch gitlab.TokenType(strings.ToLower(tokenType)) {
	case "", gitlab.TokenTypePrivate:
		cfg.TokenType = gitlab.TokenTypePrivate
	case gitlab.TokenTypeOAuth:
		cfg.TokenType = gitlab.TokenTypeOAuth
	case gitlab.TokenTypeJob:
		cfg.TokenType = gitlab.TokenTypeJob
	default:
		return nil, fmt.Errorf("invalid token type: %s", tokenType)
	}

	fmt.Fprint(p.out, "GitLab access token (needs the api scope): ")
	token, err := p.readSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	cfg.Token = strings.TrimSpace(token)
	if cfg.Token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	if cfg.Mode == "local" {
		if cfg.StoreInKeyring, err = p.askYesNo("Store the token in the OS keyring instead of the client config? (y/n, default: n): "); err != nil {
			return nil, err
		}
	}

	if cfg.ReadOnly, err = p.askYesNo("Enable read-only mode (no comments are posted)? (y/n, default: n): "); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PromptEnvironments asks which MCP clients to configure. Unknown entries
// are skipped; nothing valid selects all.
func (p *Prompter) PromptEnvironments() ([]string, error) {
	fmt.Fprintln(p.out, "\nSelect development environments to configure (comma-separated, or 'all'):")
	for i, env := range Environments {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, env)
	}
	input, err := p.ask("Your choice (default: all): ")
	if err != nil {
		return nil, err
	}

	if input == "" || strings.EqualFold(input, "all") {
		return Environments, nil
	}

	var selected []string
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if env, ok := lookupEnvironment(part); ok {
			selected = append(selected, env)
		} else {
			fmt.Fprintf(p.out, "Warning: Unknown environment '%s', skipping\n", part)
		}
	}

	if len(selected) == 0 {
		return Environments, nil
	}
	return selected, nil
}

func lookupEnvironment(choice string) (string, bool) {
	if idx, err := strconv.Atoi(choice); err == nil {
		if idx >= 1 && idx <= len(Environments) {
			return Environments[idx-1], true
		}
		return "", false
	}
	for _, env := range Environments {
		if strings.EqualFold(choice, env) {
			return env, true
		}
	}
	return "", false
}
