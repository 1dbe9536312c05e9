// Package seed populates the memory collection outside of a live
// discovery run: bulk-loading knowledge files and offline pretraining
// from a directory of mock screenshots.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dancherbu/physical-visual-tester/internal/embedding"
	"github.com/dancherbu/physical-visual-tester/internal/extract"
	"github.com/dancherbu/physical-visual-tester/internal/memory"
	"github.com/dancherbu/physical-visual-tester/internal/ollama"
)

// visionPreference is tried in order against the installed model list
// when pretraining; the first match wins.
var visionPreference = []string{"moondream", "llava", "llama3.2-vision", "llama3.2"}

// Scenario is one screen context in a knowledge file: a description plus
// the actions available on that screen.
type Scenario struct {
	Description   string           `json:"description"`
	Prerequisites []string         `json:"prerequisites"`
	Actions       []ScenarioAction `json:"actions"`
}

// ScenarioAction is one learnable action within a scenario.
type ScenarioAction struct {
	Goal   string        `json:"goal"`
	Action memory.Action `json:"action"`
	Fact   string        `json:"fact"`
}

// Seeder writes pre-authored or pretrained knowledge into the store.
type Seeder struct {
	engine embedding.Engine
	store  *memory.Store
	logger *zap.Logger
}

// New creates a seeder.
func New(engine embedding.Engine, store *memory.Store, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{engine: engine, store: store, logger: logger}
}

// SeedFile loads a JSON knowledge file (a list of scenarios) and writes
// one record per action. Returns the number of records written.
func (s *Seeder) SeedFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read knowledge file: %w", err)
	}
	var scenarios []Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return 0, fmt.Errorf("failed to parse knowledge file: %w", err)
	}

	written := 0
	for _, sc := range scenarios {
		fullContext := sc.Description
		if len(sc.Prerequisites) > 0 {
			fullContext = fmt.Sprintf("%s\nPrerequisites: %s", sc.Description, strings.Join(sc.Prerequisites, ", "))
		}
		for _, item := range sc.Actions {
			if item.Goal == "" || item.Action.TargetText == "" {
				continue
			}
			text := fmt.Sprintf("Goal: %s. Screen: %s. Action: Click %s", item.Goal, fullContext, item.Action.TargetText)
			if s.write(ctx, text, map[string]any{
				"goal":          item.Goal,
				"action":        item.Action,
				"description":   fullContext,
				"prerequisites": sc.Prerequisites,
				"fact":          item.Fact,
				"timestamp":     time.Now().Format(time.RFC3339),
				"source":        "knowledge_file",
			}) {
				written++
			}
		}
	}
	return written, nil
}

// pretrainPrompt asks the vision model for screen context plus every
// actionable element, in the record-shaped JSON the store expects.
const pretrainPrompt = `Analyze this UI screen screenshot.

Part 1: GLOBAL CONTEXT (Prerequisites)
- Identify the Active Application (Window Title).
- Identify any specific state (e.g. "Login Page", "Empty File", "Dashboard").

Part 2: ACTIONABLE ELEMENTS
- List every clickable button, link, or input field.
- For each, infer the USER GOAL (e.g. "Log In", "Open Settings", "Type Text").
- Infer the ACTION (click/type) and TARGET TEXT.

OUTPUT JSON FORMAT ONLY:
{
  "description": "A detailed description of the screen context...",
  "prerequisites": ["App: Notepad", "File: Empty"],
  "actions": [
    {
      "goal": "Save the file",
      "action": {"type": "click", "target_text": "File > Save"},
      "fact": "Opens the save dialog"
    }
  ]
}`

type pretrainAnalysis struct {
	Description   string           `json:"description"`
	Prerequisites []string         `json:"prerequisites"`
	Actions       []ScenarioAction `json:"actions"`
}

// Pretrain analyzes every PNG in dir with the first available preferred
// vision model and stores the resulting records. Returns the number of
// records written.
func (s *Seeder) Pretrain(ctx context.Context, client *ollama.Client, dir string, numPredict int) (int, error) {
	installed, err := client.ListModels(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not list models: %w", err)
	}
	model := ollama.SelectModel(installed, visionPreference)
	if model == "" {
		return 0, fmt.Errorf("no suitable vision model installed (want one of %s)", strings.Join(visionPreference, ", "))
	}
	s.logger.Info("pretraining", zap.String("model", model), zap.String("dir", dir))

	paths, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return 0, fmt.Errorf("bad mock directory: %w", err)
	}

	written := 0
	for _, path := range paths {
		img, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable screenshot", zap.String("path", path), zap.Error(err))
			continue
		}

		response, err := client.GenerateWithImage(ctx, model, pretrainPrompt, img,
			ollama.GenerateOptions{NumPredict: numPredict, Temperature: 0.1})
		if err != nil {
			s.logger.Warn("analysis failed", zap.String("path", path), zap.Error(err))
			continue
		}

		var analysis pretrainAnalysis
		if err := json.Unmarshal([]byte(extract.JSONSpan(response)), &analysis); err != nil {
			s.logger.Warn("unparseable analysis", zap.String("path", path), zap.Error(err))
			continue
		}

		fullContext := fmt.Sprintf("%s\nPrerequisites: %s", analysis.Description, strings.Join(analysis.Prerequisites, ", "))
		for _, item := range analysis.Actions {
			if item.Goal == "" || item.Action.TargetText == "" {
				continue
			}
			text := fmt.Sprintf("Goal: %s. Screen: %s. Prerequisites: %s",
				item.Goal, fullContext, strings.Join(analysis.Prerequisites, ", "))
			if s.write(ctx, text, map[string]any{
				"goal":          item.Goal,
				"action":        item.Action,
				"description":   fullContext,
				"prerequisites": analysis.Prerequisites,
				"fact":          item.Fact,
				"timestamp":     time.Now().Format(time.RFC3339),
				"source":        "pretrain",
			}) {
				written++
				s.logger.Info("learned", zap.String("goal", item.Goal))
			}
		}
	}
	return written, nil
}

func (s *Seeder) write(ctx context.Context, text string, payload map[string]any) bool {
	vector, err := s.engine.Embed(ctx, text)
	if err != nil || len(vector) == 0 {
		s.logger.Warn("embedding failed", zap.Error(err))
		return false
	}
	if len(vector) != s.engine.Dimensions() {
		s.logger.Warn("unexpected embedding dimensionality",
			zap.Int("got", len(vector)), zap.Int("want", s.engine.Dimensions()))
		return false
	}
	if err := s.store.Upsert(ctx, uuid.NewString(), vector, payload); err != nil {
		s.logger.Warn("store write failed", zap.Error(err))
		return false
	}
	return true
}
