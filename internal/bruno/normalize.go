package bruno

import orderedmap "github.com/wk8/go-ordered-map/v2"

// DisabledPrefix marks a disabled header or parameter key.
const DisabledPrefix = "~"

// Normalize turns headers and params into records and fills in the meta
// fields a published collection needs.
func Normalize(f *File, sourcePath string) *ContentObject {
	query, path := paramsToRecords(f.Params)
	return &ContentObject{
		Meta: ContentMeta{
			Name:       f.Meta.Name,
			Type:       f.Meta.Type,
			Seq:        f.Meta.Seq,
			AuthType:   f.HTTP.Auth,
			SourcePath: sourcePath,
		},
		HTTP:       f.HTTP,
		Auth:       f.Auth,
		Params:     Params{Query: query, Path: path},
		Headers:    headersToRecord(f.Headers),
		Body:       f.Body,
		Assertions: f.Assertions,
		Script:     f.Script,
		Vars:       f.Vars,
		Tests:      f.Tests,
		Docs:       f.Docs,
	}
}

// Decode parses content and normalises it. Its signature matches the
// bundler's per-file decode hook.
func Decode(rel string, content []byte) (any, error) {
	f, err := Parse(content)
	if err != nil {
		return nil, err
	}
	return Normalize(f, rel), nil
}

func recordKey(name string, enabled bool) string {
	if enabled {
		return name
	}
	return DisabledPrefix + name
}

func headersToRecord(headers []KeyValue) *Record {
	r := orderedmap.New[string, string]()
	for _, h := range headers {
		r.Set(recordKey(h.Name, h.Enabled), h.Value)
	}
	return r
}

func paramsToRecords(params []Param) (query, path *Record) {
	query = orderedmap.New[string, string]()
	path = orderedmap.New[string, string]()
	for _, p := range params {
		switch p.Type {
		case "query":
			query.Set(recordKey(p.Name, p.Enabled), p.Value)
		case "path":
			path.Set(recordKey(p.Name, p.Enabled), p.Value)
		}
	}
	return query, path
}
