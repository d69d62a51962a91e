package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"codetrack/internal/cli/command"
	httpclient "codetrack/internal/cli/http"
	"codetrack/internal/cli/state"
	pkgerrors "codetrack/pkg/errors"

	"github.com/google/shlex"
)

// Session holds REPL state.
type Session struct {
	client       *httpclient.Client
	commands     map[string]command.Command
	tokenState   *state.TokenState
	statePath    string
	prettyJSON   bool
	outputWriter *bufio.Writer
}

func New(client *httpclient.Client, commands map[string]command.Command, tokenState *state.TokenState, statePath string, prettyJSON bool) *Session {
	return &Session{
		client:       client,
		commands:     commands,
		tokenState:   tokenState,
		statePath:    statePath,
		prettyJSON:   prettyJSON,
		outputWriter: bufio.NewWriter(os.Stdout),
	}
}

func (s *Session) Run(ctx context.Context) {
	reader := bufio.NewReader(os.Stdin)
	for {
		_, _ = s.outputWriter.WriteString("codetrack> ")
		_ = s.outputWriter.Flush()
		line, err := reader.ReadString('\n')
		if err != nil {
			s.printLine("read input failed: %v", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if s.handleSystemCommand(line) {
			continue
		}

		if err := s.handleCommand(ctx, reader, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func (s *Session) handleSystemCommand(line string) bool {
	switch line {
	case "exit", "quit":
		s.printLine("bye")
		os.Exit(0)
	case "help":
		s.printHelp()
		return true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true
	}
	if strings.HasPrefix(line, "show ") {
		s.handleShow(strings.TrimSpace(strings.TrimPrefix(line, "show ")))
		return true
	}
	return false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|token|timeout")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8080")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 10s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "token":
		if len(parts) < 2 {
			s.printLine("usage: set token <identity_token>")
			return
		}
		s.tokenState.Token = parts[1]
		if err := state.Save(s.statePath, *s.tokenState); err != nil {
			s.printLine("save token failed: %v", err)
			return
		}
		s.printLine("token updated")
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow(args string) {
	switch args {
	case "token":
		if s.tokenState.Token == "" {
			s.printLine("token: <empty>")
			return
		}
		token := s.tokenState.Token
		if len(token) > 12 {
			token = token[:6] + "..." + token[len(token)-4:]
		}
		s.printLine("token: %s", token)
	case "identity":
		if s.tokenState.Identity == "" {
			s.printLine("identity: <signed out>")
			return
		}
		s.printLine("identity: %s", s.tokenState.Identity)
	case "config":
		s.printLine("tokenStatePath: %s", s.statePath)
	default:
		s.printLine("usage: show token|identity|config")
	}
}

func (s *Session) handleCommand(ctx context.Context, reader *bufio.Reader, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) < 2 {
		return fmt.Errorf("invalid command, use: <service> <action> key=value ...")
	}
	service := tokens[0]
	action := tokens[1]
	key := fmt.Sprintf("%s %s", service, action)
	cmd, ok := s.commands[key]
	if !ok {
		return fmt.Errorf("unknown command: %s %s", service, action)
	}
	params := command.Params{}
	for _, token := range tokens[2:] {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid param: %s", token)
		}
		params.Set(parts[0], parts[1])
	}

	if err := s.promptMissing(reader, cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(resp)
	s.updateSessionFromResponse(cmd, params, resp.Body)
	return nil
}

func (s *Session) promptMissing(reader *bufio.Reader, cmd command.Command, params command.Params) error {
	for _, field := range cmd.Fields {
		if !field.Required {
			continue
		}
		if params.Has(field.Name) && params.Get(field.Name) != "" {
			continue
		}
		value, err := s.promptValue(reader, field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

func (s *Session) promptValue(reader *bufio.Reader, prompt string) (string, error) {
	s.printLine("%s:", prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) renderResponse(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration)
	if len(resp.Body) == 0 {
		return
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

// updateSessionFromResponse keeps the local token state in step with the
// server session after login and logout.
func (s *Session) updateSessionFromResponse(cmd command.Command, params command.Params, body []byte) {
	if cmd.Service != "session" {
		return
	}
	switch cmd.Action {
	case "login":
		var envelope struct {
			Code int `json:"code"`
			Data struct {
				Identity string `json:"identity"`
				SignedIn bool   `json:"signed_in"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.Code != int(pkgerrors.Success) {
			return
		}
		s.tokenState.Token = params.Get("token")
		s.tokenState.Identity = envelope.Data.Identity
		if err := state.Save(s.statePath, *s.tokenState); err != nil {
			s.printLine("save session state failed: %v", err)
		}
	case "logout":
		s.tokenState.Token = ""
		s.tokenState.Identity = ""
		if err := state.Clear(s.statePath); err != nil {
			s.printLine("clear session state failed: %v", err)
		}
	}
}

func (s *Session) printHelp() {
	s.printLine("commands:")
	keys := make([]string, 0, len(s.commands))
	for key := range s.commands {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		cmd := s.commands[key]
		fields := make([]string, 0, len(cmd.Fields))
		for _, f := range cmd.Fields {
			name := f.Name
			if f.Required {
				name += "*"
			}
			fields = append(fields, name)
		}
		s.printLine("  %-22s %s", key, strings.Join(fields, " "))
	}
	s.printLine("system: help, set base|token|timeout, show token|identity|config, exit")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.outputWriter, format+"\n", args...)
	_ = s.outputWriter.Flush()
}
