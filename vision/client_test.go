package vision

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classificationBody = `{"classified": {"No Nest": "0.95683"}, "result": "success",
 "imageMd5": "0acfd6f5b3368d380a67ca9c8d309acd",
 "imageUrl": "http://vision/uploads/temp/8f80467f/18c20462.jpg", "webAPIId": "8f80467f"}`

const detectionBody = `{"classified": [
  {"label": "car", "xmin": 10, "ymin": 20, "xmax": 110, "ymax": 220, "confidence": 0.91},
  {"label": "person", "xmin": "5", "ymin": "6", "xmax": "15", "ymax": "36", "confidence": "0.5"}
 ], "result": "success"}`

func TestClient_Predict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Basic dGVzdA==", r.Header.Get("Authorization"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))

		file, header, err := r.FormFile(UploadField)
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		assert.True(t, strings.HasSuffix(header.Filename, ".jpg"))
		data, _ := io.ReadAll(file)
		assert.Equal(t, "jpeg-bytes", string(data))

		_, _ = w.Write([]byte(classificationBody))
	}))
	defer srv.Close()

	log, _ := test.NewNullLogger()
	c, err := NewClient(Config{URL: srv.URL, Auth: "Basic dGVzdA==", Timeout: time.Second}, log)
	require.NoError(t, err)

	resp, err := c.Predict(context.Background(), "abc", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "8f80467f", resp.WebAPIID)
	assert.True(t, resp.Classified.IsClassification())
	assert.InDelta(t, 0.95683, resp.Classified.Classes["No Nest"], 1e-9)

	top, ok := resp.Classified.Top()
	assert.True(t, ok)
	assert.Equal(t, "No Nest", top)
}

func TestClient_Detections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(detectionBody))
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL}, nil)
	require.NoError(t, err)

	resp, err := c.Predict(context.Background(), "0", []byte("x"))
	require.NoError(t, err)
	assert.False(t, resp.Classified.IsClassification())
	require.Len(t, resp.Classified.Boxes, 2)
	assert.Equal(t, []string{"car", "person"}, resp.Classified.Labels())
	assert.Equal(t, 36, resp.Classified.Boxes[1].Ymax)
	assert.InDelta(t, 0.5, resp.Classified.Boxes[1].Confidence, 1e-9)

	resp.Rescale(2, 0.5)
	assert.Equal(t, 220, resp.Classified.Boxes[0].Xmax)
	assert.Equal(t, 110, resp.Classified.Boxes[0].Ymax)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not deployed", http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = c.Predict(context.Background(), "abc", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatus))
	assert.Contains(t, err.Error(), "model not deployed")
}

func TestClient_RateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(classificationBody))
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL, RateLimit: 0.001, Burst: 1}, nil)
	require.NoError(t, err)

	_, err = c.Predict(context.Background(), "first", []byte("x"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Predict(ctx, "second", []byte("x"))
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewClient_EmptyURL(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Equal(t, ErrEmptyURL, err)
}

func TestClassified_JSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		classes int
		boxes   int
		wantErr bool
	}{
		{"classes as numbers", `{"Nest": 0.2, "No Nest": 0.8}`, 2, 0, false},
		{"empty detections", `[]`, 0, 0, false},
		{"null", `null`, 0, 0, false},
		{"bad confidence", `{"Nest": "high"}`, 0, 0, true},
		{"scalar", `"Nest"`, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Classified
			err := json.Unmarshal([]byte(tt.in), &c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, c.Classes, tt.classes)
			assert.Len(t, c.Boxes, tt.boxes)
		})
	}
}

func TestClassified_Top(t *testing.T) {
	c := Classified{Classes: map[string]float64{"b": 0.5, "a": 0.5, "c": 0.1}}
	top, ok := c.Top()
	assert.True(t, ok)
	assert.Equal(t, "a", top)

	_, ok = Classified{}.Top()
	assert.False(t, ok)
}

func TestResponse_RoundTrip(t *testing.T) {
	var in Response
	require.NoError(t, json.Unmarshal([]byte(detectionBody), &in))

	data, err := json.Marshal(&in)
	require.NoError(t, err)

	var out Response
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
