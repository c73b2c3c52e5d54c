package sources

// Source is one externally-hosted RSS/Atom document plus its attributed
// author. The list is static configuration, immutable during a run;
// identity is the URL.
type Source struct {
	URL    string `yaml:"url"`
	Author string `yaml:"author"`
}
