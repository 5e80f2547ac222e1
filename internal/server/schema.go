package server

// Endpoint describes one route for the schema dump.
type Endpoint struct {
	Method      string   `yaml:"method" json:"method"`
	Path        string   `yaml:"path" json:"path"`
	Params      []string `yaml:"params,omitempty" json:"params,omitempty"`
	Description string   `yaml:"description" json:"description"`
}

// Schema lists the HTTP surface; `server schema` renders it so clients can
// generate bindings without a running instance.
func Schema() []Endpoint {
	return []Endpoint{
		{
			Method:      "GET",
			Path:        "/annos/variant",
			Params:      []string{"genome_release", "chrom", "pos", "ref", "alt"},
			Description: "Annotation bundle for one sequence variant across all configured datasets.",
		},
		{
			Method:      "GET",
			Path:        "/annos/range",
			Params:      []string{"genome_release", "chrom", "start", "stop"},
			Description: "Range and interval-overlap annotations for a closed 1-based window.",
		},
		{
			Method:      "GET",
			Path:        "/annos/db-info",
			Description: "Identity and version metadata of every opened database.",
		},
		{
			Method:      "GET",
			Path:        "/genes/lookup",
			Params:      []string{"q"},
			Description: "Gene lookup by HGNC ID, NCBI gene ID, Ensembl gene ID, or symbol.",
		},
		{
			Method:      "GET",
			Path:        "/genes/info",
			Params:      []string{"hgnc_id"},
			Description: "Gene record of one HGNC ID.",
		},
		{
			Method:      "GET",
			Path:        "/metrics",
			Description: "Prometheus metrics.",
		},
	}
}
