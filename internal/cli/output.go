package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter writing to stdout and stderr
func NewOutput(format string) *Output {
	return &Output{format: format, out: os.Stdout, errOut: os.Stderr}
}

// newOutputTo creates an Output writing to the given writers
func newOutputTo(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

// ValidFormat reports whether format is a supported output format
func ValidFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	switch o.format {
	case FormatJSON:
		o.printJSON(data)
	case FormatYAML:
		o.printYAML(data)
	default:
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	switch o.format {
	case FormatJSON:
		data, _ := json.Marshal(errorBody(err))
		fmt.Fprintln(o.errOut, string(data))
	case FormatYAML:
		data, _ := yaml.Marshal(errorBody(err))
		fmt.Fprint(o.errOut, string(data))
	default:
		fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	switch o.format {
	case FormatJSON:
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.out, string(data))
	case FormatYAML:
		data, _ := yaml.Marshal(map[string]string{"message": msg})
		fmt.Fprint(o.out, string(data))
	default:
		fmt.Fprintln(o.out, msg)
	}
}

func errorBody(err error) map[string]any {
	body := map[string]string{"message": err.Error()}
	if apiErr, ok := err.(*APIError); ok {
		body["code"] = apiErr.Code
		body["message"] = apiErr.Message
	}
	return map[string]any{"error": body}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printYAML(data any) {
	enc := yaml.NewEncoder(o.out)
	enc.SetIndent(2)
	_ = enc.Encode(data)
	_ = enc.Close()
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case []Score:
		o.printScores(v)
	case ScoreCreated:
		fmt.Fprintf(o.out, "Score recorded: #%d\n", v.ID)
	case ComputedScore:
		fmt.Fprintf(o.out, "Score: %d\n", v.Score)
	case HealthResult:
		fmt.Fprintf(o.out, "Status: %s\n", v.Status)
	default:
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// AuthResult is the response to register and login
type AuthResult struct {
	Player    Player    `json:"player" yaml:"player"`
	Token     string    `json:"token" yaml:"token"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

// Score is one leaderboard row
type Score struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Score int64  `json:"score" yaml:"score"`
	Time  int64  `json:"time" yaml:"time"`
}

// ScoreCreated is the response to a score submission
type ScoreCreated struct {
	ID int64 `json:"id" yaml:"id"`
}

// ComputedScore is a score calculated locally from game telemetry
type ComputedScore struct {
	Pairs int64 `json:"pairs" yaml:"pairs"`
	Moves int64 `json:"moves" yaml:"moves"`
	Time  int64 `json:"time" yaml:"time"`
	Score int64 `json:"score" yaml:"score"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status" yaml:"status"`
}

func (o *Output) printPlayer(p Player) {
	fmt.Fprintf(o.out, "Player: %s (#%d)\n", p.Name, p.ID)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Fprintf(o.out, "Token: %s\n", a.Token)
	fmt.Fprintf(o.out, "Expires: %s\n", a.ExpiresAt.Local().Format(time.RFC1123))
}

func (o *Output) printScores(scores []Score) {
	if len(scores) == 0 {
		fmt.Fprintln(o.out, "No scores yet")
		return
	}

	tw := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tSCORE\tTIME")
	for i, s := range scores {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%ds\n", i+1, s.Name, s.Score, s.Time)
	}
	_ = tw.Flush()
}
