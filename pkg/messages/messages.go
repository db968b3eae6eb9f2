package messages

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

const (
	// MaxLineLength represents the maximum size of a single protocol line, excluding the newline
	MaxLineLength = 4096
)

// Client command keywords
const (
	CommandRegister = "REGISTER"
	CommandStart    = "START"
	CommandChat     = "CHAT"
)

// Server message prefixes
const (
	PrefixInfo    = "INFO"
	PrefixError   = "ERROR:"
	PrefixPrompt  = "PROMPT"
	PrefixScores  = "SCORES"
	PrefixChat    = "CHAT"
	PrefixEndgame = "ENDGAME"
)

// ErrMalformedRegister is returned when a REGISTER line does not carry exactly a name and an avatar.
var ErrMalformedRegister = errors.New("registration must include name and avatar filename")

// CommandType identifies a parsed client line.
type CommandType int

const (
	CommandTypeUnknown CommandType = iota
	CommandTypeRegister
	CommandTypeStart
	CommandTypeChat
	CommandTypeSubmission
)

func (t CommandType) String() string {
	switch t {
	case CommandTypeRegister:
		return "register"
	case CommandTypeStart:
		return "start"
	case CommandTypeChat:
		return "chat"
	case CommandTypeSubmission:
		return "submission"
	default:
		return "unknown"
	}
}

// Command is a single parsed client line.
type Command struct {
	Type CommandType
	// Args holds the whitespace-separated REGISTER arguments.
	Args []string
	// Text holds the CHAT body.
	Text string
	// Raw is the original line.
	Raw string
}

// ParseCommand classifies a client line. It never fails: lines it does not
// recognize come back as CommandTypeUnknown.
func ParseCommand(line string) Command {
	cmd := Command{Raw: line}
	switch {
	case line == CommandRegister || strings.HasPrefix(line, CommandRegister+" "):
		cmd.Type = CommandTypeRegister
		cmd.Args = strings.Fields(strings.TrimPrefix(line, CommandRegister))
	case strings.TrimSpace(line) == CommandStart:
		cmd.Type = CommandTypeStart
	case strings.HasPrefix(line, CommandChat+" "):
		cmd.Type = CommandTypeChat
		cmd.Text = line[len(CommandChat)+1:]
	case strings.HasPrefix(line, "{"):
		cmd.Type = CommandTypeSubmission
	}
	return cmd
}

// Registration returns the name and avatar of a REGISTER command.
func (c Command) Registration() (name string, avatar string, err error) {
	if c.Type != CommandTypeRegister || len(c.Args) != 2 {
		return "", "", ErrMalformedRegister
	}
	return c.Args[0], c.Args[1], nil
}

// ScoreEntry is one player's standing in a SCORES or ENDGAME line.
type ScoreEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func (e ScoreEntry) String() string {
	return e.Name + ":" + strconv.Itoa(e.Score)
}

func joinScores(entries []ScoreEntry) string {
	return strings.Join(lo.Map(entries, func(e ScoreEntry, _ int) string {
		return e.String()
	}), ",")
}

// Info builds an INFO line.
func Info(format string, args ...interface{}) string {
	return PrefixInfo + " " + fmt.Sprintf(format, args...)
}

// Error builds an ERROR reply.
func Error(format string, args ...interface{}) string {
	return PrefixError + " " + fmt.Sprintf(format, args...)
}

// Prompt builds the PROMPT line asking a player for a word starting with letter.
func Prompt(letter rune) string {
	return PrefixPrompt + " " + string(letter)
}

// Scores builds a SCORES line.
func Scores(entries []ScoreEntry) string {
	return PrefixScores + " " + joinScores(entries)
}

// Endgame builds an ENDGAME line. The caller orders the entries, winner first.
func Endgame(entries []ScoreEntry) string {
	return PrefixEndgame + " " + joinScores(entries)
}

// Chat builds a relayed chat line.
func Chat(name string, text string) string {
	return fmt.Sprintf("%s [%s]: %s", PrefixChat, name, text)
}

// ParseScores parses the body of a SCORES or ENDGAME line.
func ParseScores(line string) ([]ScoreEntry, error) {
	body := line
	for _, prefix := range []string{PrefixScores, PrefixEndgame} {
		body = strings.TrimPrefix(body, prefix+" ")
	}
	body = strings.TrimSpace(body)
	if body == "" || body == PrefixScores || body == PrefixEndgame {
		return []ScoreEntry{}, nil
	}

	parts := strings.Split(body, ",")
	entries := make([]ScoreEntry, 0, len(parts))
	for _, part := range parts {
		i := strings.LastIndex(part, ":")
		if i < 0 {
			return nil, fmt.Errorf("malformed score entry %q", part)
		}
		score, err := strconv.Atoi(strings.TrimSpace(part[i+1:]))
		if err != nil {
			return nil, fmt.Errorf("malformed score in entry %q: %w", part, err)
		}
		entries = append(entries, ScoreEntry{Name: part[:i], Score: score})
	}
	return entries, nil
}
