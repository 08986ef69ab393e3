package schema

// Annotation is attached to field, relation and index definitions to carry
// driver- or tool-specific configuration that the core does not interpret.
// Annotations are addressed by name; attaching two annotations with the
// same name replaces the first unless it implements Merger.
type Annotation interface {
	// Name defines the name of the annotation to be retrieved by the
	// consuming subsystem.
	Name() string
}

// Merger wraps the single Merge function that allows an annotation to
// combine itself with another annotation of the same name.
type Merger interface {
	Merge(Annotation) Annotation
}

// CommentAnnotation attaches a documentation comment to its element.
type CommentAnnotation struct {
	Text string // Comment text.
}

// Name implements the Annotation interface.
func (CommentAnnotation) Name() string {
	return "Comment"
}

// Comment returns a comment annotation with the given text.
func Comment(text string) *CommentAnnotation {
	return &CommentAnnotation{Text: text}
}

var _ Annotation = (*CommentAnnotation)(nil)
