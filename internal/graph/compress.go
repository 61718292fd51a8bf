package graph

// Compress returns an inference-only copy of the pipeline in which adjacent
// children are fused wherever the left child is Fusible and accepts the right
// one. Nested pipelines are compressed recursively. The forward output of the
// result equals the forward output of p for the same input.
//
// The receiver is left untouched and keeps training normally. The compressed
// pipeline must never be used for backward.
func (p *Pipeline) Compress() *Pipeline {
	out := NewPipeline(p.name)

	var pending *child
	for _, ch := range p.children {
		node := ch.node
		if sub, ok := node.(*Pipeline); ok {
			node = sub.Compress()
		}

		if pending != nil {
			if f, ok := pending.node.(Fusible); ok {
				if fused, ok := f.Fuse(node); ok {
					pending = &child{name: pending.name + "+" + ch.name, node: fused}
					continue
				}
			}
			out.append(pending.name, pending.node)
		}
		pending = &child{name: ch.name, node: node}
	}
	if pending != nil {
		out.append(pending.name, pending.node)
	}
	return out
}
