// Package session is the caller-owned orchestrator: it wires the
// compositor, complexity controller, background scheduler, and stability
// validator around one output surface and one exposed stream.
//
// A session has an explicit init/shutdown lifecycle and no static state,
// so any number of sessions coexist independently. All surface mutation
// is serialized by the session lock, preserving the composite →
// analyze/inject → signal order consumers rely on.
package session
