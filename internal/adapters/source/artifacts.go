package source

import (
	"fmt"
	"path/filepath"

	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/scoring"
	"github.com/rotisserie/eris"
)

// ArtifactPath is where the artifact of a family and domain lives under dir.
func ArtifactPath(dir, family string, d model.Domain) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.yaml", family, d))
}

// ArtifactLoader reads artifacts from dir. Validation happens when the model set builds scorers.
func ArtifactLoader(dir string) scoring.ArtifactLoader {
	return func(family string, d model.Domain) (*scoring.Artifact, error) {
		var art scoring.Artifact
		if err := decodeFile(ArtifactPath(dir, family, d), &art); err != nil {
			return nil, eris.Wrapf(err, "artifact %s/%s", family, d)
		}
		return &art, nil
	}
}

// WriteArtifacts writes each artifact to its path under dir.
func WriteArtifacts(dir string, arts []*scoring.Artifact) error {
	for _, art := range arts {
		if err := WriteYAML(ArtifactPath(dir, art.Family, art.Domain), art); err != nil {
			return eris.Wrapf(err, "artifact %s", art.Name())
		}
	}
	return nil
}
