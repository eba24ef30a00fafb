package bruno

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is returned for .bru text that cannot be read.
var ErrSyntax = errors.New("bruno: syntax error")

var methods = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true, "patch": true,
	"options": true, "head": true, "connect": true, "trace": true,
}

// Text blocks keep their body verbatim, minus the two-space indent.
var textBlocks = map[string]bool{
	"body:json": true, "body:text": true, "body:xml": true, "body:graphql": true,
	"body:graphql:vars": true, "script:pre-request": true, "script:post-response": true,
	"tests": true, "docs": true,
}

// Parse decodes a .bru file.
func Parse(src []byte) (*File, error) {
	f := &File{
		Params:     []Param{},
		Headers:    []KeyValue{},
		Assertions: []KeyValue{},
		Body:       Body{FormURLEncoded: []KeyValue{}, MultipartForm: []MultipartField{}},
		Vars:       Vars{Req: []KeyValue{}, Res: []KeyValue{}},
	}

	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, empty, ok := blockHeader(line)
		if !ok {
			return nil, fmt.Errorf("%w: line %d: expected block, got %q", ErrSyntax, lineNo, line)
		}
		if empty {
			continue
		}

		var body []string
		closed := false
		for sc.Scan() {
			lineNo++
			l := strings.TrimRight(sc.Text(), "\r")
			if l == "}" {
				closed = true
				break
			}
			body = append(body, l)
		}
		if !closed {
			return nil, fmt.Errorf("%w: block %q is not closed", ErrSyntax, name)
		}

		if textBlocks[name] {
			f.setText(name, textBody(body))
			continue
		}
		pairs, err := dictBody(body)
		if err != nil {
			return nil, fmt.Errorf("%w: block %q: %v", ErrSyntax, name, err)
		}
		f.setDict(name, pairs)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("bruno: read: %w", err)
	}
	return f, nil
}

// blockHeader reads "name {" or "name {}".
func blockHeader(line string) (name string, empty, ok bool) {
	if line[0] == ' ' || line[0] == '\t' {
		return "", false, false
	}
	switch {
	case strings.HasSuffix(line, "{}"):
		name, empty = strings.TrimSpace(strings.TrimSuffix(line, "{}")), true
	case strings.HasSuffix(line, "{"):
		name = strings.TrimSpace(strings.TrimSuffix(line, "{"))
	default:
		return "", false, false
	}
	return name, empty, name != ""
}

func textBody(lines []string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimPrefix(l, "  ")
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}

func dictBody(lines []string) ([]KeyValue, error) {
	var out []KeyValue
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		key, value, found := strings.Cut(l, ":")
		if !found {
			return nil, fmt.Errorf("missing ':' in %q", l)
		}
		kv := KeyValue{Name: strings.TrimSpace(key), Value: strings.TrimSpace(value), Enabled: true}
		if strings.HasPrefix(kv.Name, "~") {
			kv.Name = kv.Name[1:]
			kv.Enabled = false
		}
		out = append(out, kv)
	}
	return out, nil
}

func (f *File) setText(name, text string) {
	switch name {
	case "body:json":
		f.Body.JSON = text
	case "body:text":
		f.Body.Text = text
	case "body:xml":
		f.Body.XML = text
	case "body:graphql":
		f.Body.GraphQL = text
	case "body:graphql:vars":
		f.Body.GraphQLVars = text
	case "script:pre-request":
		f.Script.Req = text
	case "script:post-response":
		f.Script.Res = text
	case "tests":
		f.Tests = text
	case "docs":
		f.Docs = text
	}
}

func (f *File) setDict(name string, pairs []KeyValue) {
	get := func(key string) string {
		for _, p := range pairs {
			if p.Name == key {
				return p.Value
			}
		}
		return ""
	}

	switch {
	case name == "meta":
		f.Meta = Meta{Name: get("name"), Type: get("type"), Seq: get("seq")}
	case methods[name]:
		f.HTTP = HTTP{Method: name, URL: get("url"), Body: get("body"), Auth: get("auth")}
	case name == "params:query" || name == "params:path" || name == "query":
		typ := "query"
		if name == "params:path" {
			typ = "path"
		}
		for _, p := range pairs {
			f.Params = append(f.Params, Param{Name: p.Name, Value: p.Value, Enabled: p.Enabled, Type: typ})
		}
	case name == "headers":
		f.Headers = append(f.Headers, pairs...)
	case name == "assert":
		f.Assertions = append(f.Assertions, pairs...)
	case name == "auth:basic":
		f.auth().Basic = &BasicAuth{Username: get("username"), Password: get("password")}
	case name == "auth:bearer":
		f.auth().Bearer = &BearerAuth{Token: get("token")}
	case name == "body:form-urlencoded":
		f.Body.FormURLEncoded = append(f.Body.FormURLEncoded, pairs...)
	case name == "body:multipart-form":
		for _, p := range pairs {
			f.Body.MultipartForm = append(f.Body.MultipartForm, multipartField(p))
		}
	case name == "vars:pre-request":
		f.Vars.Req = append(f.Vars.Req, pairs...)
	case name == "vars:post-response":
		f.Vars.Res = append(f.Vars.Res, pairs...)
	}
}

func (f *File) auth() *Auth {
	if f.Auth == nil {
		f.Auth = &Auth{}
	}
	return f.Auth
}

// multipartField reads "name: @file(path)" or "name: text @contentType(type)".
func multipartField(p KeyValue) MultipartField {
	field := MultipartField{Name: p.Name, Value: p.Value, Enabled: p.Enabled, Type: "text"}
	if i := strings.LastIndex(field.Value, " @contentType("); i >= 0 && strings.HasSuffix(field.Value, ")") {
		field.ContentType = field.Value[i+len(" @contentType(") : len(field.Value)-1]
		field.Value = field.Value[:i]
	}
	if strings.HasPrefix(field.Value, "@file(") && strings.HasSuffix(field.Value, ")") {
		field.Type = "file"
		field.Value = field.Value[len("@file(") : len(field.Value)-1]
	}
	return field
}
