package todo

// Complete marks t finished and remembers its category so Uncomplete can
// restore it. Completing a completed todo returns it unchanged.
func Complete(t Todo) Todo {
	if t.Completed {
		return t
	}
	t.PreviousCategory = t.Category
	t.Category = CategoryFinished
	t.Completed = true
	return t
}

// Uncomplete reopens t in the category it held before completion, falling
// back to DEFAULT when none was recorded.
func Uncomplete(t Todo) Todo {
	restored := t.PreviousCategory
	if restored == "" || restored == CategoryFinished || !restored.Valid() {
		restored = CategoryDefault
	}
	t.Category = restored
	t.PreviousCategory = CategoryDefault
	t.Completed = false
	return t
}

func Toggle(t Todo) Todo {
	if t.Completed {
		return Uncomplete(t)
	}
	return Complete(t)
}
