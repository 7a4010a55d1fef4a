package graph

// Predicates and types used in derived documents
const (
	PredType            = "@type"
	PredID              = "id"
	PredVersion         = "version"
	PredItems           = "items"
	PredCatalogEntry    = "catalogEntry"
	PredCommitID        = "commitId"
	PredCommitTimeStamp = "commitTimeStamp"

	TypeRegistration = "Registration"
)
