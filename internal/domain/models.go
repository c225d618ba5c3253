package domain

import (
	"fmt"
	"time"
)

// ScoringMode selects how answers on a single item are accumulated.
type ScoringMode string

const (
	// ScoringSingle accepts exactly one selection per item.
	ScoringSingle ScoringMode = "single"
	// ScoringMulti accumulates selections ("select all that apply"); any correct selection counts.
	ScoringMulti ScoringMode = "multi"
)

// AdvanceMode selects how the runner leaves an evaluated item.
type AdvanceMode string

const (
	AdvanceTimed  AdvanceMode = "timed"
	AdvanceManual AdvanceMode = "manual"
)

// CelebrationPolicy decides when a completed run earns the celebratory effect.
type CelebrationPolicy string

const (
	CelebratePerfect   CelebrationPolicy = "perfect"
	CelebrateThreshold CelebrationPolicy = "threshold"
)

// ItemKind distinguishes multiple-choice items from binary-response items.
type ItemKind string

const (
	KindChoice ItemKind = "choice"
	KindBinary ItemKind = "binary"
)

// Phase is the runner state for the current item.
type Phase string

const (
	PhasePresenting Phase = "presenting"
	PhaseEvaluated  Phase = "evaluated"
	PhaseCompleted  Phase = "completed"
)

// Choice is one selectable answer.
type Choice struct {
	ID      int    `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	Correct bool   `json:"correct" yaml:"correct"`
}

// Item is one question, scenario or prompt of an activity.
// Binary items carry no choices; the response is compared against Target.
type Item struct {
	ID      int      `json:"id" yaml:"id"`
	Prompt  string   `json:"prompt" yaml:"prompt"`
	Kind    ItemKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Choices []Choice `json:"choices,omitempty" yaml:"choices,omitempty"`
	Target  bool     `json:"target,omitempty" yaml:"target,omitempty"`
}

// IsBinary reports whether the item expects a yes/no response.
func (it Item) IsBinary() bool {
	return it.Kind == KindBinary
}

// Activity is the static definition of one scored screen.
type Activity struct {
	ID              string            `json:"id" yaml:"id"`
	Title           string            `json:"title" yaml:"title"`
	Category        string            `json:"category" yaml:"category"`
	Items           []Item            `json:"items" yaml:"items"`
	Scoring         ScoringMode       `json:"scoring,omitempty" yaml:"scoring,omitempty"`
	Advance         AdvanceMode       `json:"advance,omitempty" yaml:"advance,omitempty"`
	AdvanceDelay    Duration          `json:"advanceDelay,omitempty" yaml:"advanceDelay,omitempty"`
	RoundTimeout    Duration          `json:"roundTimeout,omitempty" yaml:"roundTimeout,omitempty"`
	UnlockThreshold float64           `json:"unlockThreshold,omitempty" yaml:"unlockThreshold,omitempty"`
	Celebration     CelebrationPolicy `json:"celebration,omitempty" yaml:"celebration,omitempty"`
	CelebrateAt     float64           `json:"celebrateAt,omitempty" yaml:"celebrateAt,omitempty"`
}

// Validate checks the definition-time invariants. An activity that fails
// validation must never be run.
func (a Activity) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidActivity)
	}
	if len(a.Items) == 0 {
		return fmt.Errorf("%w: %s has no items", ErrInvalidActivity, a.ID)
	}
	switch a.Scoring {
	case "", ScoringSingle, ScoringMulti:
	default:
		return fmt.Errorf("%w: %s has unknown scoring %q", ErrInvalidActivity, a.ID, a.Scoring)
	}
	switch a.Advance {
	case "", AdvanceTimed, AdvanceManual:
	default:
		return fmt.Errorf("%w: %s has unknown advance %q", ErrInvalidActivity, a.ID, a.Advance)
	}
	switch a.Celebration {
	case "", CelebratePerfect, CelebrateThreshold:
	default:
		return fmt.Errorf("%w: %s has unknown celebration %q", ErrInvalidActivity, a.ID, a.Celebration)
	}
	if a.Celebration == CelebrateThreshold && a.CelebrateAt <= 0 {
		return fmt.Errorf("%w: %s threshold celebration needs celebrateAt", ErrInvalidActivity, a.ID)
	}
	if a.UnlockThreshold < 0 || a.UnlockThreshold > 1 || a.CelebrateAt < 0 || a.CelebrateAt > 1 {
		return fmt.Errorf("%w: %s thresholds must be within [0,1]", ErrInvalidActivity, a.ID)
	}
	if a.AdvanceDelay < 0 || a.RoundTimeout < 0 {
		return fmt.Errorf("%w: %s has a negative delay", ErrInvalidActivity, a.ID)
	}

	seen := make(map[int]struct{}, len(a.Items))
	for _, it := range a.Items {
		if it.ID <= 0 {
			return fmt.Errorf("%w: %s item ids must be positive", ErrInvalidActivity, a.ID)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: %s repeats item %d", ErrInvalidActivity, a.ID, it.ID)
		}
		seen[it.ID] = struct{}{}
		if err := validateItem(a, it); err != nil {
			return err
		}
	}
	return nil
}

func validateItem(a Activity, it Item) error {
	switch it.Kind {
	case KindBinary:
		if len(it.Choices) > 0 {
			return fmt.Errorf("%w: %s binary item %d has choices", ErrInvalidActivity, a.ID, it.ID)
		}
		if a.Scoring == ScoringMulti {
			return fmt.Errorf("%w: %s binary item %d in multi-select activity", ErrInvalidActivity, a.ID, it.ID)
		}
		return nil
	case "", KindChoice:
	default:
		return fmt.Errorf("%w: %s item %d has unknown kind %q", ErrInvalidActivity, a.ID, it.ID, it.Kind)
	}

	if len(it.Choices) == 0 {
		return fmt.Errorf("%w: %s item %d has no choices", ErrInvalidActivity, a.ID, it.ID)
	}
	ids := make(map[int]struct{}, len(it.Choices))
	correct := 0
	for _, c := range it.Choices {
		if _, dup := ids[c.ID]; dup {
			return fmt.Errorf("%w: %s item %d repeats choice %d", ErrInvalidActivity, a.ID, it.ID, c.ID)
		}
		ids[c.ID] = struct{}{}
		if c.Correct {
			correct++
		}
	}
	if a.Scoring == ScoringMulti {
		if correct == 0 {
			return fmt.Errorf("%w: %s item %d has no correct choice", ErrInvalidActivity, a.ID, it.ID)
		}
		return nil
	}
	if correct != 1 {
		return fmt.Errorf("%w: %s item %d needs exactly one correct choice, has %d", ErrInvalidActivity, a.ID, it.ID, correct)
	}
	return nil
}

// ActivityState is the runtime state of one playthrough.
type ActivityState struct {
	CurrentIndex    int   `json:"currentIndex"`
	Score           int   `json:"score"`
	Total           int   `json:"total"`
	Phase           Phase `json:"phase"`
	AnsweredCurrent bool  `json:"answeredCurrent"`
	Completed       bool  `json:"completed"`
	// Selected holds the choice ids recorded for the current item.
	Selected    []int `json:"selected,omitempty"`
	LastCorrect bool  `json:"lastCorrect"`
	Unlocked    bool  `json:"unlocked"`
	Celebrate   bool  `json:"celebrate"`
}

// CatalogEntry is one row of a category's ordered activity list.
type CatalogEntry struct {
	ID      string `json:"id" yaml:"id"`
	Index   int    `json:"index" yaml:"index"`
	Path    string `json:"path" yaml:"path"`
	Special bool   `json:"isSpecial" yaml:"isSpecial"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Coins   int    `json:"coins,omitempty" yaml:"coins,omitempty"`
	XP      int    `json:"xp,omitempty" yaml:"xp,omitempty"`
}

// NavState is what a caller may pass along with navigation to override
// an activity's rewards and completion target.
type NavState struct {
	CoinsPerLevel int    `json:"coinsPerLevel,omitempty"`
	TotalCoins    int    `json:"totalCoins,omitempty"`
	TotalXP       int    `json:"totalXp,omitempty"`
	NextGamePath  string `json:"nextGamePath,omitempty"`
	NextGameID    string `json:"nextGameId,omitempty"`
}

// NextTarget is the resolved follow-up activity. The zero value means none.
type NextTarget struct {
	Path string `json:"nextGamePath,omitempty"`
	ID   string `json:"nextGameId,omitempty"`
}

// Found reports whether a next activity exists.
func (t NextTarget) Found() bool {
	return t.Path != ""
}

const (
	DefaultCoinsPerLevel = 5
	DefaultTotalCoins    = 5
	DefaultTotalXP       = 10
)

// Rewards are the coin/xp figures shown by the shell.
type Rewards struct {
	CoinsPerLevel int `json:"coinsPerLevel"`
	TotalCoins    int `json:"totalCoins"`
	TotalXP       int `json:"totalXp"`
}

// ResolveRewards picks catalog values first, then navigation state, then defaults.
func ResolveRewards(entry *CatalogEntry, nav NavState) Rewards {
	pick := func(fromEntry, fromNav, fallback int) int {
		if fromEntry > 0 {
			return fromEntry
		}
		if fromNav > 0 {
			return fromNav
		}
		return fallback
	}
	var coins, xp int
	if entry != nil {
		coins, xp = entry.Coins, entry.XP
	}
	return Rewards{
		CoinsPerLevel: pick(coins, nav.CoinsPerLevel, DefaultCoinsPerLevel),
		TotalCoins:    pick(coins, nav.TotalCoins, DefaultTotalCoins),
		TotalXP:       pick(xp, nav.TotalXP, DefaultTotalXP),
	}
}

// ShellView is everything the presentational shell renders around an activity.
type ShellView struct {
	PlaythroughID  string        `json:"playthroughId"`
	ActivityID     string        `json:"activityId"`
	Title          string        `json:"title"`
	Score          int           `json:"score"`
	CurrentLevel   int           `json:"currentLevel"`
	TotalLevels    int           `json:"totalLevels"`
	ShowGameOver   bool          `json:"showGameOver"`
	NextEnabled    bool          `json:"nextEnabled"`
	NextGamePath   string        `json:"nextGamePath,omitempty"`
	NextGameID     string        `json:"nextGameId,omitempty"`
	FlashPoints    int           `json:"flashPoints"`
	AnswerConfetti bool          `json:"answerConfetti"`
	Celebrate      bool          `json:"showConfetti"`
	CanRetry       bool          `json:"canRetry"`
	Rewards        Rewards       `json:"rewards"`
	State          ActivityState `json:"state"`
}

// ChoiceView is a choice without its ground truth.
type ChoiceView struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// ItemView is an item as shown to the player.
type ItemView struct {
	ID      int          `json:"id"`
	Prompt  string       `json:"prompt"`
	Kind    ItemKind     `json:"kind"`
	Choices []ChoiceView `json:"choices,omitempty"`
}

// ActivityView is the public projection of an activity.
type ActivityView struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Scoring ScoringMode `json:"scoring"`
	Advance AdvanceMode `json:"advance"`
	Items   []ItemView  `json:"items"`
}

// View strips correctness flags so the definition can be sent to clients.
func (a Activity) View() ActivityView {
	items := make([]ItemView, 0, len(a.Items))
	for _, it := range a.Items {
		kind := it.Kind
		if kind == "" {
			kind = KindChoice
		}
		iv := ItemView{ID: it.ID, Prompt: it.Prompt, Kind: kind}
		for _, c := range it.Choices {
			iv.Choices = append(iv.Choices, ChoiceView{ID: c.ID, Text: c.Text})
		}
		items = append(items, iv)
	}
	scoring := a.Scoring
	if scoring == "" {
		scoring = ScoringSingle
	}
	advance := a.Advance
	if advance == "" {
		advance = AdvanceTimed
	}
	return ActivityView{ID: a.ID, Title: a.Title, Scoring: scoring, Advance: advance, Items: items}
}

// ActivityResult is the record kept for a completed playthrough.
type ActivityResult struct {
	PlaythroughID string    `json:"playthroughId" yaml:"playthroughId"`
	ActivityID    string    `json:"activityId" yaml:"activityId"`
	Score         int       `json:"score" yaml:"score"`
	Total         int       `json:"total" yaml:"total"`
	Unlocked      bool      `json:"unlocked" yaml:"unlocked"`
	CompletedAt   time.Time `json:"completedAt" yaml:"completedAt"`
}
