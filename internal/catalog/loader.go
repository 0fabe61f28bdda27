package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/wellness-hub/internal/models"
)

//go:embed data/*.yaml
var defaultData embed.FS

// Loader holds the diagnostic catalog: stress questions, the feedback
// bands for stress scores and the Holmes-Rahe life events.
type Loader struct {
	mu        sync.RWMutex
	questions map[string]*models.StressQuestion
	feedback  []*models.StressFeedback
	events    map[string]*models.HolmesRaheEvent
}

// NewLoader creates an empty catalog loader
func NewLoader() *Loader {
	return &Loader{
		questions: make(map[string]*models.StressQuestion),
		events:    make(map[string]*models.HolmesRaheEvent),
	}
}

// LoadDefaults loads the catalog compiled into the binary.
func (l *Loader) LoadDefaults() error {
	sub, err := fs.Sub(defaultData, "data")
	if err != nil {
		return err
	}
	return l.LoadFS(sub)
}

// LoadFromDir loads every YAML file in dir, replacing the current catalog.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading diagnostic catalog from directory", "dir", dir)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("catalog directory: %w", err)
	}
	return l.LoadFS(os.DirFS(dir))
}

// LoadFS parses all *.yaml / *.yml files at the root of fsys. The catalog is
// swapped in only when every file parses and the result validates.
func (l *Loader) LoadFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	questions := make(map[string]*models.StressQuestion)
	events := make(map[string]*models.HolmesRaheEvent)
	var feedback []*models.StressFeedback

	files := 0
	for _, entry := range entries {
		ext := strings.ToLower(path.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		var cf catalogFile
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}

		for _, q := range cf.Questions {
			if err := validateQuestion(q); err != nil {
				return fmt.Errorf("%s: %w", entry.Name(), err)
			}
			if _, dup := questions[q.ID]; dup {
				return fmt.Errorf("%s: duplicate question %q", entry.Name(), q.ID)
			}
			questions[q.ID] = q
		}
		for _, e := range cf.Events {
			if e.ID == "" || e.Label == "" {
				return fmt.Errorf("%s: event id and label are required", entry.Name())
			}
			if e.Points <= 0 {
				return fmt.Errorf("%s: event %q must have positive points", entry.Name(), e.ID)
			}
			if _, dup := events[e.ID]; dup {
				return fmt.Errorf("%s: duplicate event %q", entry.Name(), e.ID)
			}
			events[e.ID] = e
		}
		for _, f := range cf.Feedback {
			if f.MinScore > f.MaxScore {
				return fmt.Errorf("%s: feedback %q has min_score above max_score", entry.Name(), f.ID)
			}
			feedback = append(feedback, f)
		}
		files++
	}

	sort.Slice(feedback, func(i, j int) bool { return feedback[i].MinScore < feedback[j].MinScore })
	for i := 1; i < len(feedback); i++ {
		if feedback[i].MinScore <= feedback[i-1].MaxScore {
			return fmt.Errorf("feedback %q overlaps %q", feedback[i].ID, feedback[i-1].ID)
		}
	}

	l.mu.Lock()
	l.questions = questions
	l.events = events
	l.feedback = feedback
	l.mu.Unlock()

	slog.Info("diagnostic catalog loaded",
		"files", files,
		"questions", len(questions),
		"feedback", len(feedback),
		"events", len(events))
	return nil
}

func validateQuestion(q *models.StressQuestion) error {
	if q.ID == "" || q.Text == "" {
		return fmt.Errorf("question id and text are required")
	}
	if q.Min > q.Max {
		return fmt.Errorf("question %q has min above max", q.ID)
	}
	return nil
}

// Question returns a stress question by ID
func (l *Loader) Question(id string) *models.StressQuestion {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.questions[id]
}

// Event returns a Holmes-Rahe event by ID
func (l *Loader) Event(id string) *models.HolmesRaheEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.events[id]
}

// FeedbackFor returns the band containing score, or nil.
func (l *Loader) FeedbackFor(score int) *models.StressFeedback {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, f := range l.feedback {
		if f.Contains(score) {
			return f
		}
	}
	return nil
}

// Questions returns the stress questions ordered for display
func (l *Loader) Questions() []*models.StressQuestion {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.StressQuestion, 0, len(l.questions))
	for _, q := range l.questions {
		result = append(result, q)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Events returns the Holmes-Rahe events, heaviest first
func (l *Loader) Events() []*models.HolmesRaheEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.HolmesRaheEvent, 0, len(l.events))
	for _, e := range l.events {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Points != result[j].Points {
			return result[i].Points > result[j].Points
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Catalog returns a snapshot of the whole catalog
func (l *Loader) Catalog() *models.Catalog {
	l.mu.RLock()
	feedback := append([]*models.StressFeedback(nil), l.feedback...)
	l.mu.RUnlock()

	return &models.Catalog{
		Questions:        l.Questions(),
		Feedback:         feedback,
		HolmesRaheEvents: l.Events(),
	}
}

// catalogFile is the YAML layout of one catalog file. Any section may be absent.
type catalogFile struct {
	Questions []*models.StressQuestion  `yaml:"questions"`
	Feedback  []*models.StressFeedback  `yaml:"feedback"`
	Events    []*models.HolmesRaheEvent `yaml:"events"`
}
