package constants

// Content types
const (
	// ContentTypeTurtle is used for every graph document we read or write
	ContentTypeTurtle = "text/turtle"
	// ContentTypeSparqlUpdate is the PATCH body type for triple mutations
	ContentTypeSparqlUpdate = "application/sparql-update"
	// ContentTypeImage is the declared type of uploaded attachments
	ContentTypeImage = "image"
)

// Resource layout
const (
	// ACLSuffix is appended to a resource URI to address its access-control document
	ACLSuffix = ".acl"
	// FilesContainer is the sub-container attachments are stored under
	FilesContainer = "files/"
	// ProfileFragment identifies the person described by a profile document
	ProfileFragment = "#me"
	// RandomSuffixLength is the length of generated resource names
	RandomSuffixLength = 5
)

// LDP
const (
	// LDPResource is advertised as rel="type" when creating graph nodes
	LDPResource = "http://www.w3.org/ns/ldp#Resource"
)

// Traversal defaults, overridable through configuration
const (
	DefaultMaxConcurrentFetches = 8
	DefaultFetchTimeoutSeconds  = 10
)
