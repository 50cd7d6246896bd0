package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/server/artifacts"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Field aliases seen across search servers, in order of preference.
var (
	titleKeys   = []string{"title", "name"}
	snippetKeys = []string{"snippet", "description", "summary", "body"}
	contentKeys = []string{"content", "text"}
	urlKeys     = []string{"url", "link", "href"}
	sourceKeys  = []string{"source", "engine"}

	// keys that wrap a list of hits
	listKeys = []string{"results", "result"}

	imageURLKeys  = []string{"imageUrl", "image_url", "url"}
	imageDataKeys = []string{"imageData", "image_data", "data", "base64"}
)

// parseSearch flattens a tool result into at most maxResults items. Items
// without any descriptive text are dropped. Text content is used whenever
// structured content yields nothing to keep.
func parseSearch(res *mcp.CallToolResult, query string, maxResults int) []models.ResultItem {
	var kept []models.ResultItem
	if res.StructuredContent != nil {
		if raw, err := json.Marshal(res.StructuredContent); err == nil {
			kept = withText(decodeSearchJSON(raw, query))
		}
	}

	if len(kept) == 0 {
		var items []models.ResultItem
		for _, content := range res.Content {
			tc, ok := content.(*mcp.TextContent)
			if !ok {
				continue
			}
			text := strings.TrimSpace(tc.Text)
			if text == "" {
				continue
			}
			if json.Valid([]byte(text)) {
				items = append(items, decodeSearchJSON([]byte(text), query)...)
				continue
			}
			items = append(items, models.ResultItem{Title: fallbackTitle(query), Content: text})
		}
		kept = withText(items)
	}

	if len(kept) > maxResults {
		kept = kept[:maxResults]
	}
	return kept
}

func withText(items []models.ResultItem) []models.ResultItem {
	kept := make([]models.ResultItem, 0, len(items))
	for _, it := range items {
		if it.HasText() {
			kept = append(kept, it)
		}
	}
	return kept
}

func fallbackTitle(query string) string {
	return fmt.Sprintf("Search result for '%s'", query)
}

func decodeSearchJSON(raw []byte, query string) []models.ResultItem {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	switch val := v.(type) {
	case []any:
		out := make([]models.ResultItem, 0, len(val))
		for _, e := range val {
			if it, ok := itemFrom(e, query); ok {
				out = append(out, it)
			}
		}
		return out
	case map[string]any:
		for _, key := range listKeys {
			if nested, ok := val[key].([]any); ok {
				return decodeSearchJSON(mustMarshal(nested), query)
			}
		}
		if it, ok := itemFrom(val, query); ok {
			return []models.ResultItem{it}
		}
		return nil
	case string:
		return []models.ResultItem{{Title: fallbackTitle(query), Content: val}}
	case nil:
		return nil
	default:
		return []models.ResultItem{{Title: fallbackTitle(query), Content: fmt.Sprint(val)}}
	}
}

func itemFrom(v any, query string) (models.ResultItem, bool) {
	switch e := v.(type) {
	case map[string]any:
		return models.ResultItem{
			Title:   firstString(e, titleKeys),
			Snippet: firstString(e, snippetKeys),
			Content: firstString(e, contentKeys),
			URL:     firstString(e, urlKeys),
			Source:  firstString(e, sourceKeys),
		}, true
	case string:
		if strings.TrimSpace(e) == "" {
			return models.ResultItem{}, false
		}
		return models.ResultItem{Title: fallbackTitle(query), Content: e}, true
	default:
		return models.ResultItem{}, false
	}
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func mustMarshal(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// parseImage requires exactly one representation across the whole result:
// either one URL or one inline image. The same payload seen as an image block
// and as base64 in JSON counts once, labelled with the block's MIME type.
func parseImage(res *mcp.CallToolResult) (models.Artifact, error) {
	var urls, blocks, datas []string

	collect := func(m map[string]any) {
		if u := firstString(m, imageURLKeys); u != "" {
			urls = append(urls, u)
		}
		if d := firstString(m, imageDataKeys); d != "" {
			datas = append(datas, asDataURI(d))
		}
	}

	if m, ok := res.StructuredContent.(map[string]any); ok {
		collect(m)
	}

	for _, content := range res.Content {
		switch c := content.(type) {
		case *mcp.ImageContent:
			mime := c.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			blocks = append(blocks, artifacts.EncodeDataURI(mime, c.Data))
		case *mcp.TextContent:
			text := strings.TrimSpace(c.Text)
			var m map[string]any
			switch {
			case text == "":
			case json.Unmarshal([]byte(text), &m) == nil:
				collect(m)
			case strings.HasPrefix(text, "data:image/"):
				datas = append(datas, text)
			case strings.HasPrefix(text, "http://"), strings.HasPrefix(text, "https://"):
				urls = append(urls, text)
			}
		}
	}

	urls = dedupe(urls, func(s string) string { return s })
	datas = dedupe(append(blocks, datas...), payloadKey)

	switch {
	case len(urls) == 1 && len(datas) == 0:
		return models.Artifact{URL: urls[0]}, nil
	case len(datas) == 1 && len(urls) == 0:
		return models.Artifact{Data: datas[0]}, nil
	default:
		return models.Artifact{}, fmt.Errorf("%w: expected one image artifact, got %d urls and %d inline images",
			common.ErrUpstreamProtocolError, len(urls), len(datas))
	}
}

// asDataURI wraps bare base64 as a PNG data URI.
func asDataURI(s string) string {
	if strings.HasPrefix(s, "data:") {
		return s
	}
	return "data:image/png;base64," + s
}

// payloadKey identifies an inline image by its decoded bytes, ignoring the
// declared MIME type. Undecodable URIs are compared verbatim.
func payloadKey(uri string) string {
	_, data, err := artifacts.DecodeDataURI(uri)
	if err != nil {
		return uri
	}
	return string(data)
}

// dedupe keeps the first element for each key, preserving order.
func dedupe(in []string, key func(string) string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		k := key(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
