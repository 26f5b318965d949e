package nano

import (
	"fmt"
	"strings"
)

// fragment is one piece of a block's content: literal text, or a reference to
// the same block in an ancestor template that is resolved on the final pass.
type fragment struct {
	text string

	ancestor string
	block    string
	resolved bool
}

func (f *fragment) deferred() bool {
	return f.ancestor != "" && !f.resolved
}

func (rc *renderContext) blockStart(name string) error {
	if rc.open != "" {
		return fmt.Errorf("%w: close +%s before opening +%s", ErrBlockState, rc.open, name)
	}
	rc.open = name
	rc.push()
	rc.openDepth = len(rc.captures)
	return nil
}

// sameScope fails when the open block's capture is not the innermost one,
// which happens when a partial tries to end or split a block its includer opened.
func (rc *renderContext) sameScope(directive string) error {
	if len(rc.captures) != rc.openDepth {
		return fmt.Errorf("%w: %s must be in the same template as +%s", ErrBlockState, directive, rc.open)
	}
	return nil
}

func (rc *renderContext) blockEnd(name string) error {
	if rc.open != name {
		expected := "none"
		if rc.open != "" {
			expected = "-" + rc.open
		}
		return fmt.Errorf("%w: +%s is already closed or was never opened, expected %s", ErrBlockState, name, expected)
	}
	if err := rc.sameScope("-" + name); err != nil {
		return err
	}
	rc.open = ""
	captured := rc.pop()
	return rc.merge(name, captured)
}

// merge stores the captured content of a finished block. A template takes the
// version of its immediate child when the child defines the block and keeps
// its own otherwise; intermediate passes only record that choice and the final
// pass writes it in place.
func (rc *renderContext) merge(name, captured string) error {
	rc.appendFragment(rc.name, name, &fragment{text: captured})

	_, overridden := rc.blocks[rc.child][name]
	if overridden {
		if _, ok := rc.finalized[name]; !ok {
			rc.finalized[name] = rc.child
		}
	} else {
		rc.finalized[name] = rc.name
	}
	if len(rc.ancestors) > 0 {
		return nil
	}

	if !overridden {
		_, err := rc.Write([]byte(captured))
		return err
	}
	text, err := rc.resolve(rc.finalized[name], name)
	if err != nil {
		return err
	}
	_, err = rc.Write([]byte(text))
	return err
}

// parent splits the open block: the text captured so far becomes a literal
// fragment and the ancestor's version of the block is spliced in after it.
// Without an ancestor there is nothing to splice and the capture continues.
func (rc *renderContext) parent() error {
	if rc.open == "" {
		return fmt.Errorf(`%w: "|parent" can only be used inside a block`, ErrBlockState)
	}
	if err := rc.sameScope(`"|parent"`); err != nil {
		return err
	}
	if len(rc.ancestors) == 0 {
		return nil
	}
	rc.appendFragment(rc.name, rc.open, &fragment{text: rc.pop()})
	rc.push()
	rc.appendFragment(rc.name, rc.open, &fragment{
		ancestor: rc.ancestors[len(rc.ancestors)-1],
		block:    rc.open,
	})
	return nil
}

func (rc *renderContext) appendFragment(tmpl, block string, f *fragment) {
	if rc.blocks[tmpl] == nil {
		rc.blocks[tmpl] = map[string][]*fragment{}
	}
	rc.blocks[tmpl][block] = append(rc.blocks[tmpl][block], f)
}

// resolve concatenates the fragments of block in tmpl. Deferred fragments are
// resolved once and keep their text afterwards.
func (rc *renderContext) resolve(tmpl, block string) (string, error) {
	var b strings.Builder
	for _, f := range rc.blocks[tmpl][block] {
		if f.deferred() {
			text, err := rc.resolveAncestor(f.ancestor, f.block)
			if err != nil {
				return "", err
			}
			f.text, f.resolved = text, true
		}
		b.WriteString(f.text)
	}
	return b.String(), nil
}

// resolveAncestor walks up from tmpl to the first template defining block.
func (rc *renderContext) resolveAncestor(tmpl, block string) (string, error) {
	seen := map[string]bool{}
	for t := tmpl; t != "" && !seen[t]; t = rc.parentOf[t] {
		seen[t] = true
		if _, ok := rc.blocks[t][block]; ok {
			return rc.resolve(t, block)
		}
	}
	return "", fmt.Errorf("%w: no ancestor of %s defines +%s", ErrBlockState, tmpl, block)
}
