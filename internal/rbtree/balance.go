package rbtree

/******************** Rotations ********************/

// Rotations rewire links only; they never touch colors or the flip counter.

func (t *Tree[V]) rotateLeft(x int32) {
	y := t.nodes[x].right
	t.nodes[x].right = t.nodes[y].left
	if t.nodes[y].left != sentinel {
		t.nodes[t.nodes[y].left].parent = x
	}
	t.nodes[y].parent = t.nodes[x].parent
	if p := t.nodes[x].parent; p == sentinel {
		t.root = y
	} else if x == t.nodes[p].left {
		t.nodes[p].left = y
	} else {
		t.nodes[p].right = y
	}
	t.nodes[y].left = x
	t.nodes[x].parent = y
}

func (t *Tree[V]) rotateRight(y int32) {
	x := t.nodes[y].left
	t.nodes[y].left = t.nodes[x].right
	if t.nodes[x].right != sentinel {
		t.nodes[t.nodes[x].right].parent = y
	}
	t.nodes[x].parent = t.nodes[y].parent
	if p := t.nodes[y].parent; p == sentinel {
		t.root = x
	} else if y == t.nodes[p].right {
		t.nodes[p].right = x
	} else {
		t.nodes[p].left = x
	}
	t.nodes[x].right = y
	t.nodes[y].parent = x
}

/******************** Insert ********************/

func (t *Tree[V]) insertFixup(z int32) {
	for t.nodes[t.nodes[z].parent].color == red {
		p := t.nodes[z].parent
		g := t.nodes[p].parent
		if p == t.nodes[g].left {
			y := t.nodes[g].right // uncle
			if t.nodes[y].color == red {
				// Case 1
				t.recolor(p, black)
				t.recolor(y, black)
				t.recolor(g, red)
				z = g
				continue
			}
			if z == t.nodes[p].right {
				// Case 2
				z = p
				t.rotateLeft(z)
				p = t.nodes[z].parent
			}
			// Case 3
			t.paintPivot(p, g)
			t.rotateRight(g)
		} else {
			// mirror cases
			y := t.nodes[g].left // uncle
			if t.nodes[y].color == red {
				// Case 1
				t.recolor(p, black)
				t.recolor(y, black)
				t.recolor(g, red)
				z = g
				continue
			}
			if z == t.nodes[p].left {
				// Case 2
				z = p
				t.rotateRight(z)
				p = t.nodes[z].parent
			}
			// Case 3
			t.paintPivot(p, g)
			t.rotateLeft(g)
		}
	}
	t.nodes[t.root].color = black
}

// paintPivot recolors parent and grandparent ahead of the case-3 rotation.
// A rotation at the root is a restructuring of the whole tree and does not
// count toward the flip counter; any deeper rotation does.
func (t *Tree[V]) paintPivot(p, g int32) {
	if g == t.root {
		t.nodes[p].color = black
		t.nodes[g].color = red
		return
	}
	t.recolor(p, black)
	t.recolor(g, red)
}

/******************** Delete ********************/

func (t *Tree[V]) transplant(u, v int32) {
	if p := t.nodes[u].parent; p == sentinel {
		t.root = v
	} else if u == t.nodes[p].left {
		t.nodes[p].left = v
	} else {
		t.nodes[p].right = v
	}
	t.nodes[v].parent = t.nodes[u].parent
}

func (t *Tree[V]) deleteNode(z int32) {
	y := z
	yOrigColor := t.nodes[y].color
	var x int32

	if t.nodes[z].left == sentinel {
		x = t.nodes[z].right
		t.transplant(z, x)
	} else if t.nodes[z].right == sentinel {
		x = t.nodes[z].left
		t.transplant(z, x)
	} else {
		y = t.minNode(t.nodes[z].right) // successor
		yOrigColor = t.nodes[y].color
		x = t.nodes[y].right
		if t.nodes[y].parent == z {
			t.nodes[x].parent = y
		} else {
			t.transplant(y, t.nodes[y].right)
			t.nodes[y].right = t.nodes[z].right
			t.nodes[t.nodes[y].right].parent = y
		}
		t.transplant(z, y)
		t.nodes[y].left = t.nodes[z].left
		t.nodes[t.nodes[y].left].parent = y
		t.nodes[y].color = t.nodes[z].color
	}

	if yOrigColor == black {
		t.deleteFixup(x)
	}
}

func (t *Tree[V]) deleteFixup(x int32) {
	for x != t.root && t.nodes[x].color == black {
		p := t.nodes[x].parent
		if x == t.nodes[p].left {
			w := t.nodes[p].right
			if t.nodes[w].color == red {
				// Case 1
				t.recolor(w, black)
				t.recolor(p, red)
				t.rotateLeft(p)
				w = t.nodes[p].right
			}
			if t.nodes[t.nodes[w].left].color == black && t.nodes[t.nodes[w].right].color == black {
				// Case 2
				t.recolor(w, red)
				x = p
				continue
			}
			if t.nodes[t.nodes[w].right].color == black {
				// Case 3
				t.recolor(t.nodes[w].left, black)
				t.recolor(w, red)
				t.rotateRight(w)
				w = t.nodes[p].right
			}
			// Case 4
			t.recolor(w, t.nodes[p].color)
			t.recolor(p, black)
			t.recolor(t.nodes[w].right, black)
			t.rotateLeft(p)
			x = t.root
		} else {
			// mirror cases
			w := t.nodes[p].left
			if t.nodes[w].color == red {
				// Case 1
				t.recolor(w, black)
				t.recolor(p, red)
				t.rotateRight(p)
				w = t.nodes[p].left
			}
			if t.nodes[t.nodes[w].right].color == black && t.nodes[t.nodes[w].left].color == black {
				// Case 2
				t.recolor(w, red)
				x = p
				continue
			}
			if t.nodes[t.nodes[w].left].color == black {
				// Case 3
				t.recolor(t.nodes[w].right, black)
				t.recolor(w, red)
				t.rotateLeft(w)
				w = t.nodes[p].left
			}
			// Case 4
			t.recolor(w, t.nodes[p].color)
			t.recolor(p, black)
			t.recolor(t.nodes[w].left, black)
			t.rotateRight(p)
			x = t.root
		}
	}
	t.nodes[x].color = black
}
