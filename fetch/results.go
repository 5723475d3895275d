package fetch

import (
	"context"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/nvr-ai/vision-eval/storage"
	"github.com/nvr-ai/vision-eval/vision"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultResultsFile is the object name used when none is given.
const DefaultResultsFile = "fetch_scores.json"

// Results maps a job key to the API response for it.
type Results map[string]*vision.Response

// Keys returns the keys in ascending order.
func (r Results) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save writes the results as a JSON object.
func (r Results) Save(ctx context.Context, store storage.Store, name string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode results")
	}
	return store.Put(ctx, name, data)
}

// LoadResults reads results written by Save.
func LoadResults(ctx context.Context, store storage.Store, name string) (Results, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	var r Results
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(err, "decode %s", store.Location(name))
	}
	for k, v := range r {
		if v == nil {
			return nil, errors.Errorf("%s: null response for %s", store.Location(name), k)
		}
	}
	return r, nil
}
