package parttree

// Scan passes over a container's children.
const (
	passPlain = iota + 1
	passHTML
)

// frame is one container being scanned by ExtractBody.
type frame struct {
	node int
	pass int
	next int // position in the child list
}

// ExtractBody returns a single plain-text body for the tree.
//
// For each container the children are scanned twice in document order.
// The first pass returns the first text/plain leaf and descends into nested
// containers before moving to the next sibling; a nested container that
// yields non-empty text wins. The second pass returns the first text/html
// leaf converted to plain text. A root without children decodes its own
// payload. A tree with no text yields "".
func ExtractBody(t *Tree) string {
	if t == nil || t.Len() == 0 {
		return ""
	}
	if len(t.Children(Root)) == 0 {
		return decodePart(t, Root)
	}

	stack := []frame{{node: Root, pass: passPlain}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		kids := t.Children(top.node)

		if top.next >= len(kids) {
			if top.pass == passPlain {
				top.pass = passHTML
				top.next = 0
				continue
			}
			// Exhausted without text; the parent keeps scanning.
			stack = stack[:len(stack)-1]
			continue
		}

		child := kids[top.next]
		top.next++
		p := t.Part(child)

		var (
			text  string
			found bool
		)
		switch top.pass {
		case passPlain:
			if len(t.Children(child)) > 0 {
				stack = append(stack, frame{node: child, pass: passPlain})
				continue
			}
			if p.MediaType() == TypePlain && p.HasData() {
				text, found = decodePart(t, child), true
			}
		case passHTML:
			if len(t.Children(child)) == 0 && p.MediaType() == TypeHTML && p.HasData() {
				text, found = htmlToText(decodePart(t, child)), true
			}
		}
		if !found {
			continue
		}

		// A match ends the scan of this container. Only the root may
		// return an empty match; an empty nested result lets the parent go on.
		if text != "" || len(stack) == 1 {
			return text
		}
		stack = stack[:len(stack)-1]
	}
	return ""
}

func decodePart(t *Tree, idx int) string {
	p := t.Part(idx)
	if !p.HasData() {
		return ""
	}
	text, err := decodeText(p.Data)
	if err != nil {
		return ""
	}
	return text
}
