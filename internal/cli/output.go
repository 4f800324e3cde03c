package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	if w == nil {
		w = os.Stdout
	}
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case RegisterResult:
		o.printRegisterResult(v)
	case CaptureResult:
		o.printCaptureResult(v)
	case UncaptureResult:
		fmt.Fprintf(o.w, "Deleted: %d\n", v.Deleted)
	case Dex:
		o.printDex(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case Completion:
		o.printCompletion(v)
	case PlayerMatch:
		o.printPlayerMatch(v)
	case CaughtCount:
		fmt.Fprintf(o.w, "%s (%s): %d players\n", v.Species, v.Filter, v.Players)
	case PlayerList:
		o.printPlayerList(v)
	case BackupResult:
		o.printBackupResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	OK     bool         `json:"ok"`
	Queues []QueueStats `json:"queues"`
}

// QueueStats response type
type QueueStats struct {
	Name      string `json:"name"`
	Depth     int    `json:"depth"`
	Capacity  int    `json:"capacity"`
	Workers   int    `json:"workers"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Rejected  uint64 `json:"rejected"`
}

// RegisterResult response type. Queued is set when the server acknowledged
// without waiting for the merge.
type RegisterResult struct {
	Status      int     `json:"-"`
	OK          bool    `json:"ok"`
	Queued      bool    `json:"queued,omitempty"`
	ID          string  `json:"id,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	SafeName    *string `json:"safe_name,omitempty"`
	Created     bool    `json:"created"`
	Updated     bool    `json:"updated"`
}

// CaptureResult response type
type CaptureResult struct {
	Status        int    `json:"-"`
	OK            bool   `json:"ok"`
	Queued        bool   `json:"queued,omitempty"`
	Ignored       bool   `json:"ignored,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Inserted      bool   `json:"inserted"`
	ShinyUpgraded bool   `json:"shiny_upgraded"`
	FirstOverall  bool   `json:"first_overall"`
	FirstShiny    bool   `json:"first_shiny"`
}

// UncaptureResult response type
type UncaptureResult struct {
	OK      bool `json:"ok"`
	Deleted int  `json:"deleted"`
}

// Capture response type
type Capture struct {
	Species    string    `json:"species"`
	Shiny      bool      `json:"shiny"`
	CapturedAt time.Time `json:"captured_at"`
}

// Dex response type
type Dex struct {
	ID          string    `json:"id"`
	DisplayName *string   `json:"display_name"`
	SafeName    *string   `json:"safe_name"`
	Count       int       `json:"count"`
	ShinyCount  int       `json:"shiny_count"`
	Captures    []Capture `json:"captures"`
}

// LeaderboardEntry response type
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	SafeName    string `json:"safe_name"`
	Total       int    `json:"total"`
	Shinies     int    `json:"shinies"`
}

// Leaderboard response type
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// CompletionEntry response type
type CompletionEntry struct {
	Rank          int     `json:"rank"`
	ID            string  `json:"id"`
	DisplayName   string  `json:"display_name"`
	SafeName      string  `json:"safe_name"`
	UniqueSpecies int     `json:"unique_species"`
	MaxSpecies    int     `json:"max_species"`
	Ratio         float64 `json:"completion_ratio"`
}

// Completion response type
type Completion struct {
	MaxSpecies int               `json:"max_species"`
	Entries    []CompletionEntry `json:"entries"`
}

// PlayerMatch response type
type PlayerMatch struct {
	LeaderboardEntry
	Captures []Capture `json:"captures"`
}

// SpeciesCaught response type
type SpeciesCaught struct {
	Species      string `json:"species"`
	TotalPlayers int    `json:"total_players"`
	ShinyPlayers int    `json:"shiny_players"`
}

// CaughtCount is a filtered species count
type CaughtCount struct {
	Species string `json:"species"`
	Filter  string `json:"filter"`
	Players int    `json:"players"`
}

// PlayerRow is one player read straight from the database
type PlayerRow struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	SafeName    string    `json:"safe_name"`
	Total       int       `json:"total"`
	Shinies     int       `json:"shinies"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// PlayerList is the db list-players output
type PlayerList struct {
	Players []PlayerRow `json:"players"`
}

// BackupResult is the db backup output
type BackupResult struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Key      string `json:"key,omitempty"`
	Uploaded bool   `json:"uploaded"`
}

func (o *Output) printHealthResult(h HealthResult) {
	status := "ok"
	if !h.OK {
		status = "unhealthy"
	}
	fmt.Fprintf(o.w, "Status: %s\n", status)
	for _, q := range h.Queues {
		fmt.Fprintf(o.w, "  %s: %d/%d queued, %d workers, %d processed, %d failed, %d rejected\n",
			q.Name, q.Depth, q.Capacity, q.Workers, q.Processed, q.Failed, q.Rejected)
	}
}

func (o *Output) printRegisterResult(r RegisterResult) {
	if r.Queued {
		fmt.Fprintln(o.w, "Register queued")
		return
	}
	name := ""
	if r.SafeName != nil {
		name = *r.SafeName
	}
	action := "Updated"
	if r.Created {
		action = "Created"
	}
	fmt.Fprintf(o.w, "%s player %s (%s)\n", action, r.ID, name)
}

func (o *Output) printCaptureResult(c CaptureResult) {
	switch {
	case c.Queued:
		fmt.Fprintln(o.w, "Capture queued")
	case c.Ignored:
		fmt.Fprintf(o.w, "Ignored: %s\n", c.Reason)
	case c.Inserted:
		fmt.Fprintln(o.w, "Capture recorded")
	case c.ShinyUpgraded:
		fmt.Fprintln(o.w, "Upgraded to shiny")
	default:
		fmt.Fprintln(o.w, "Already recorded")
	}
	if c.FirstOverall {
		fmt.Fprintln(o.w, "First capture of this species by anyone!")
	}
	if c.FirstShiny {
		fmt.Fprintln(o.w, "First shiny of this species by anyone!")
	}
}

func (o *Output) printDex(d Dex) {
	name := "Unknown"
	if d.SafeName != nil {
		name = *d.SafeName
	}
	fmt.Fprintf(o.w, "Player: %s (%s)\n", name, d.ID)
	fmt.Fprintf(o.w, "Captures: %d (%d shiny)\n", d.Count, d.ShinyCount)
	for _, c := range d.Captures {
		marker := ""
		if c.Shiny {
			marker = " *"
		}
		fmt.Fprintf(o.w, "  - %s%s\n", c.Species, marker)
	}
}

func (o *Output) printLeaderboard(l Leaderboard) {
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tID\tTOTAL\tSHINIES")
	for _, e := range l.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", e.Rank, displayName(e.SafeName, e.DisplayName), e.ID, e.Total, e.Shinies)
	}
	_ = tw.Flush()
}

func (o *Output) printCompletion(c Completion) {
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "RANK\tNAME\tID\tSPECIES\tCOMPLETE (of %d)\n", c.MaxSpecies)
	for _, e := range c.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.1f%%\n",
			e.Rank, displayName(e.SafeName, e.DisplayName), e.ID, e.UniqueSpecies, e.Ratio*100)
	}
	_ = tw.Flush()
}

func (o *Output) printPlayerMatch(m PlayerMatch) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", displayName(m.SafeName, m.DisplayName), m.ID)
	fmt.Fprintf(o.w, "Rank: %d\n", m.Rank)
	fmt.Fprintf(o.w, "Captures: %d (%d shiny)\n", m.Total, m.Shinies)
}

func (o *Output) printPlayerList(l PlayerList) {
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTOTAL\tSHINIES\tLAST SEEN")
	for _, p := range l.Players {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			p.ID, displayName(p.SafeName, p.DisplayName), p.Total, p.Shinies, p.LastSeenAt.Format(time.RFC3339))
	}
	_ = tw.Flush()
}

func (o *Output) printBackupResult(b BackupResult) {
	fmt.Fprintf(o.w, "Backup: %s (%d bytes)\n", b.Path, b.Size)
	if b.Uploaded {
		fmt.Fprintf(o.w, "Uploaded as %s\n", b.Key)
	}
}

func displayName(safe, raw string) string {
	switch {
	case safe != "":
		return safe
	case raw != "":
		return raw
	default:
		return "Unknown"
	}
}
