// Package bruno reads Bruno .bru request files and normalises them into the
// objects a published collection carries.
package bruno

import orderedmap "github.com/wk8/go-ordered-map/v2"

// File is a decoded .bru file.
type File struct {
	Meta       Meta       `json:"meta"`
	HTTP       HTTP       `json:"http"`
	Params     []Param    `json:"params"`
	Headers    []KeyValue `json:"headers"`
	Auth       *Auth      `json:"auth,omitempty"`
	Body       Body       `json:"body"`
	Assertions []KeyValue `json:"assertions"`
	Script     Script     `json:"script"`
	Vars       Vars       `json:"vars"`
	Tests      string     `json:"tests,omitempty"`
	Docs       string     `json:"docs"`
}

type Meta struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Seq  string `json:"seq"`
}

type HTTP struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Body   string `json:"body"`
	Auth   string `json:"auth"`
}

// Param is a query or path parameter.
type Param struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
	Type    string `json:"type"`
}

// KeyValue is one line of a dictionary block.
type KeyValue struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

type MultipartField struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
	// Type is "text" or "file".
	Type        string `json:"type"`
	ContentType string `json:"contentType"`
}

type Body struct {
	JSON           string           `json:"json,omitempty"`
	Text           string           `json:"text,omitempty"`
	XML            string           `json:"xml,omitempty"`
	GraphQL        string           `json:"graphql,omitempty"`
	GraphQLVars    string           `json:"graphqlVars,omitempty"`
	FormURLEncoded []KeyValue       `json:"formUrlEncoded"`
	MultipartForm  []MultipartField `json:"multipartForm"`
}

type Auth struct {
	Basic  *BasicAuth  `json:"basic,omitempty"`
	Bearer *BearerAuth `json:"bearer,omitempty"`
}

type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type BearerAuth struct {
	Token string `json:"token"`
}

type Script struct {
	Req string `json:"req,omitempty"`
	Res string `json:"res,omitempty"`
}

type Vars struct {
	Req []KeyValue `json:"req"`
	Res []KeyValue `json:"res"`
}

// Record is an ordered name to value mapping in which disabled entries carry
// a ~ prefix.
type Record = orderedmap.OrderedMap[string, string]

// ContentObject is the published form of a request.
type ContentObject struct {
	Meta       ContentMeta `json:"meta"`
	HTTP       HTTP        `json:"http"`
	Auth       *Auth       `json:"auth,omitempty"`
	Params     Params      `json:"params"`
	Headers    *Record     `json:"headers"`
	Body       Body        `json:"body"`
	Assertions []KeyValue  `json:"assertions"`
	Script     Script      `json:"script"`
	Vars       Vars        `json:"vars"`
	Tests      string      `json:"tests,omitempty"`
	Docs       string      `json:"docs"`
}

type ContentMeta struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Seq        string `json:"seq"`
	AuthType   string `json:"authType"`
	SourcePath string `json:"sourcePath"`
}

type Params struct {
	Query *Record `json:"query"`
	Path  *Record `json:"path"`
}
