package knowledge

import (
	_ "embed"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/nelssec/llm-workflows/pkg/models"
)

//go:embed kb.json
var defaultKB []byte

type Base struct {
	Records []models.KBRecord `json:"records"`
}

// Load reads a knowledge base file. An empty path yields the built-in store
// FAQ.
func Load(path string) (*Base, error) {
	if path == "" {
		return Parse(defaultKB)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithHint(errors.Wrapf(err, "failed to read knowledge base %s", path),
			"set KB_PATH to a JSON file of the form {\"records\": [...]}")
	}
	return Parse(data)
}

func Parse(data []byte) (*Base, error) {
	var kb Base
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, errors.Wrap(err, "failed to parse knowledge base")
	}
	return &kb, nil
}

// Search returns every record. The base is small enough to hand to the
// model whole; ranking is left to the model.
func (b *Base) Search(question string) []models.KBRecord {
	return b.Records
}

func (b *Base) Get(id int) (models.KBRecord, bool) {
	for _, r := range b.Records {
		if r.ID == id {
			return r, true
		}
	}
	return models.KBRecord{}, false
}
