// Package session tracks navigation sessions for one project.
//
// A session identifies a single "file selected" event. It carries a
// monotonically increasing ID, used to correlate logged samples and
// predictions, and a uniform draw taken once at creation so that every
// sampling question asked about the session answers against the same random
// variable.
//
// Holder keeps exactly one current session. NewSession swaps in a fresh
// session and hands back the one it replaced, which is "the session that just
// ended" from the caller's point of view.
//
// Example Usage:
//
//	holder := session.NewHolder(sampling.NewUniformSource())
//	prev, cur := holder.NewSession()
//	if p, ok := prev.Get(); ok && p.ShouldLog(0.5) {
//	    // log the file the user just left
//	}
package session
