// Package source reads run inputs and model artifacts from YAML files and writes them back.
package source

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/training"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ErrInvalidInput is returned for files that parse but cannot be used.
var ErrInvalidInput = errors.New("invalid input")

// ReadPopulation reads the run population file.
func ReadPopulation(path string) (*model.Population, error) {
	var pop model.Population
	if err := decodeFile(path, &pop); err != nil {
		return nil, eris.Wrap(err, "population")
	}
	if pop.EvalSeason <= 0 {
		return nil, eris.Wrapf(ErrInvalidInput, "population %s: eval_season is required", path)
	}
	for i, p := range pop.Players {
		if p.PlayerID == "" {
			return nil, eris.Wrapf(ErrInvalidInput, "population %s: player %d has no player_id", path, i)
		}
		if !p.Domain.Valid() {
			return nil, eris.Wrapf(ErrInvalidInput, "population %s: player %s has domain %q", path, p.PlayerID, p.Domain)
		}
	}
	return &pop, nil
}

// ReadLeague reads league settings. An empty path yields the default league.
func ReadLeague(path string) (model.LeagueSettings, error) {
	if path == "" {
		return model.DefaultLeagueSettings(), nil
	}
	var s model.LeagueSettings
	if err := decodeFile(path, &s); err != nil {
		return model.LeagueSettings{}, eris.Wrap(err, "league settings")
	}
	return s.WithDefaults(), nil
}

// ReadHistory reads a training history file.
func ReadHistory(path string) (*training.History, error) {
	var h training.History
	if err := decodeFile(path, &h); err != nil {
		return nil, eris.Wrap(err, "training history")
	}
	return &h, nil
}

// WriteYAML encodes v to path, creating parent directories.
func WriteYAML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "create directory for %s", path)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrapf(err, "encode %s", path)
	}
	if err := enc.Close(); err != nil {
		return eris.Wrapf(err, "encode %s", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // output files are meant to be shared
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

// decodeFile strictly decodes one YAML document; unknown fields are errors.
func decodeFile(path string, v any) error {
	f, err := os.Open(path) //nolint:gosec // paths come from the operator
	if err != nil {
		return eris.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return eris.Wrapf(ErrInvalidInput, "%s is empty", path)
		}
		return eris.Wrapf(err, "decode %s", path)
	}
	return nil
}
