package flows

// Deps groups flow dependency sets. Builder wires it once per Engine and the
// request methods hand the matching set to their flow.
type Deps struct {
	Link LinkDeps
}
