package gml

import (
	"encoding/xml"
	"log/slog"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/i18n"
	"github.com/deegree/featurecodec/schema"
)

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	Schema          *schema.AppSchema // nil: load from xsi:schemaLocation, else infer
	SchemaLoader    SchemaLoader      // resolves xsi:schemaLocation when Schema is nil
	Version         *Version          // nil: detect from the root's namespace declarations
	SystemID        string            // document URL, base for relative URIs
	RemoteResolver  feature.Resolver  // target of non-local xlinks (optional)
	FeatureResolver feature.Resolver  // resolver for feature references; default is the document context
	Translator      i18n.Translator   // message catalog for errors (default: i18n.Default())
	Logger          *slog.Logger      // degrading conditions are logged here (default: slog.Default())
}

// DefaultReaderOptions returns default options for reading.
func DefaultReaderOptions() *ReaderOptions {
	return &ReaderOptions{
		Translator: i18n.Default(),
		Logger:     slog.Default(),
	}
}

// TimeSliceFilter decides whether a time-slice property is left out of the
// output.
type TimeSliceFilter func(p *feature.Property) (exclude bool, err error)

// WriterOptions configures a Writer.
type WriterOptions struct {
	Version Version

	// TraverseXlinkDepth limits how many levels of referenced features are
	// inlined: -1 inlines without limit, 0 always writes references.
	TraverseXlinkDepth int

	// RemoteXlinkTemplate builds the xlink:href of features that are not
	// inlined; "{}" is replaced by the feature id.
	RemoteXlinkTemplate string

	// GenerateBoundedBy adds a gml:boundedBy to features that lack one.
	GenerateBoundedBy bool

	// RequestedProperties restricts optional properties to the listed
	// names. Mandatory properties are always written.
	RequestedProperties []xml.Name

	TimeSliceFilter TimeSliceFilter

	// Prefixes maps namespace prefixes to URIs declared on each top-level
	// element. Undeclared namespaces get generated prefixes.
	Prefixes map[string]string

	// SchemaLocation is written as xsi:schemaLocation on top-level elements.
	SchemaLocation string

	Indent     string
	Translator i18n.Translator // messages of comments and warnings (default: i18n.Default())
	Logger     *slog.Logger
}

// DefaultWriterOptions returns default options for writing.
func DefaultWriterOptions() *WriterOptions {
	return &WriterOptions{
		Version:             GML32,
		TraverseXlinkDepth:  -1,
		RemoteXlinkTemplate: "#{}",
		Indent:              "  ",
		Translator:          i18n.Default(),
		Logger:              slog.Default(),
	}
}
