package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"text/template"
	"unicode"
)

const generatedHeader = "// Code generated by go generate; DO NOT EDIT.\n"

// WriteEvents writes the spacebot.Event methods for each named struct.
func WriteEvents(out io.Writer, events []string, pkg, id, aggregateType string) error {
	return writeSource(out, eventsTemplate, struct {
		Package       string
		Names         []string
		ID            string
		AggregateType string
	}{
		Package:       pkg,
		Names:         events,
		ID:            id,
		AggregateType: aggregateType,
	})
}

// WriteCommands writes the cqrs.Command methods for each named struct.
func WriteCommands(out io.Writer, commands []string, pkg, id, aggregateType string) error {
	return writeSource(out, commandsTemplate, struct {
		Package       string
		Names         []string
		ID            string
		AggregateType string
	}{
		Package:       pkg,
		Names:         commands,
		ID:            id,
		AggregateType: aggregateType,
	})
}

// WriteAggregate writes the Handle dispatch and CommandTypes for an aggregate
// that implements one lowercase handler method per command.
func WriteAggregate(out io.Writer, commands []string, pkg, aggregateName string) error {
	if aggregateName == "" {
		return fmt.Errorf("missing aggregate name")
	}

	return writeSource(out, aggregateTemplate, struct {
		Package   string
		Aggregate string
		Names     []string
	}{
		Package:   pkg,
		Aggregate: aggregateName,
		Names:     commands,
	})
}

func writeSource(out io.Writer, tmpl *template.Template, data interface{}) error {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, data)
	if err != nil {
		return err
	}

	source, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("unable to format generated source: %v", err)
	}

	_, err = out.Write(source)
	return err
}

func lowerFirst(name string) string {
	if name == "" {
		return name
	}

	runes := []rune(name)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

var funcMap = template.FuncMap{
	"lowerFirst": lowerFirst,
}

var eventsTemplate = template.Must(template.New("events").Funcs(funcMap).Parse(generatedHeader + `
package {{ .Package }}
{{ range .Names }}
func (e {{ . }}) AggregateID() string { return e.{{ $.ID }} }
func (e {{ . }}) AggregateType() string { return "{{ $.AggregateType }}" }
func (e {{ . }}) EventType() string { return "{{ . }}" }
{{ end }}`))

var commandsTemplate = template.Must(template.New("commands").Funcs(funcMap).Parse(generatedHeader + `
package {{ .Package }}
{{ range .Names }}
func (c {{ . }}) AggregateID() string { return c.{{ $.ID }} }
func (c {{ . }}) AggregateType() string { return "{{ $.AggregateType }}" }
func (c {{ . }}) CommandType() string { return "{{ . }}" }
{{ end }}`))

var aggregateTemplate = template.Must(template.New("aggregate").Funcs(funcMap).Parse(generatedHeader + `
package {{ .Package }}

import (
	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/cqrs"
)

func (a *{{ .Aggregate }}) Handle(command cqrs.Command) []spacebot.Event {
	switch c := command.(type) {
{{- range $i, $name := .Names }}
{{- if $i }}
{{ end }}
	case {{ $name }}:
		a.{{ lowerFirst $name }}(c)
{{- end }}
	}

	defer a.resetPendingEvents()
	return a.pendingEvents
}

func (a *{{ .Aggregate }}) resetPendingEvents() {
	a.pendingEvents = nil
}

func (a *{{ .Aggregate }}) CommandTypes() []string {
	return []string{
{{- range .Names }}
		{{ . }}{}.CommandType(),
{{- end }}
	}
}
`))
