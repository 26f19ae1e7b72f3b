package tracking

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LoadResult is the outcome of a creative load reported through the after-load URL.
type LoadResult string

const (
	LoadResultAdLoaded LoadResult = "ad_loaded"
	LoadResultError    LoadResult = "error"
	LoadResultTimeout  LoadResult = "timeout"
)

const (
	macroDelimiter = "%%"

	MacroKeyLoadDuration = "LOAD_DURATION_MS"
	MacroKeyLoadResult   = "LOAD_RESULT"
)

// Replacer fills %%KEY%% macros in tracking URLs. Macros it has no value for are left untouched.
// Templates are cached per URL, so a Replacer is meant to be long lived and shared.
type Replacer struct {
	templates map[string]urlTemplate
	sync.RWMutex
}

// NewReplacer returns an empty Replacer.
func NewReplacer() *Replacer {
	return &Replacer{templates: make(map[string]urlTemplate)}
}

// urlTemplate holds the byte offsets of every delimited macro found in a URL.
type urlTemplate struct {
	starts []int
	ends   []int
}

func constructTemplate(rawURL string) urlTemplate {
	var tmplt urlTemplate
	delimLen := len(macroDelimiter)
	offset := 0
	for offset < len(rawURL) {
		start := strings.Index(rawURL[offset:], macroDelimiter)
		if start == -1 {
			break
		}
		start += offset
		end := strings.Index(rawURL[start+delimLen:], macroDelimiter)
		if end == -1 {
			break
		}
		end += start + 2*delimLen
		tmplt.starts = append(tmplt.starts, start)
		tmplt.ends = append(tmplt.ends, end)
		offset = end
	}
	return tmplt
}

func (r *Replacer) getTemplate(rawURL string) urlTemplate {
	r.RLock()
	tmplt, ok := r.templates[rawURL]
	r.RUnlock()

	if !ok {
		tmplt = constructTemplate(rawURL)
		r.Lock()
		r.templates[rawURL] = tmplt
		r.Unlock()
	}
	return tmplt
}

// Replace substitutes the query escaped value of every macro found in values.
func (r *Replacer) Replace(rawURL string, values map[string]string) string {
	tmplt := r.getTemplate(rawURL)
	if len(tmplt.starts) == 0 {
		return rawURL
	}

	var result bytes.Buffer
	delimLen := len(macroDelimiter)
	current := 0
	for i, start := range tmplt.starts {
		end := tmplt.ends[i]
		result.WriteString(rawURL[current:start])
		if value, ok := values[rawURL[start+delimLen:end-delimLen]]; ok {
			result.WriteString(url.QueryEscape(value))
		} else {
			result.WriteString(rawURL[start:end])
		}
		current = end
	}
	result.WriteString(rawURL[current:])
	return result.String()
}

var defaultReplacer = NewReplacer()

// ReplaceMacros fills the load duration and load result macros of an after-load URL.
func ReplaceMacros(rawURL string, loadDuration time.Duration, result LoadResult) string {
	return defaultReplacer.Replace(rawURL, map[string]string{
		MacroKeyLoadDuration: strconv.FormatInt(int64(loadDuration/time.Millisecond), 10),
		MacroKeyLoadResult:   string(result),
	})
}
