package taiko

import (
	"strings"

	iselector "github.com/suziejprince/taiko/internal/selector"
)

// Selector is the public handle a selector factory returns; With attaches
// relative constraints, and it resolves to an Element only once handed to
// a verb or wrapped via Find.
type Selector struct {
	inner iselector.Selector
}

// With attaches relative-position constraints to s, per spec.md §3's
// composite selector.
func (s Selector) With(relatives ...Relative) Selector {
	cs := make([]iselector.RelativeConstraint, len(relatives))
	for i, r := range relatives {
		cs[i] = r.c
	}
	return Selector{iselector.With(s.inner, cs...)}
}

// S is the raw selector factory (spec.md §6's `$`): a label string probed
// first as a value-attribute match and then as visible text, or a raw
// XPath/CSS expression when text starts with "//" or "(".
func S(text string) Selector {
	if strings.HasPrefix(text, "//") || strings.HasPrefix(text, "(") {
		return Selector{iselector.XPathOrCss(text)}
	}
	return Selector{iselector.Label(text, false)}
}

// Text matches an element whose normalized text is exactly text.
func Text(text string) Selector { return Selector{iselector.Label(text, true)} }

// Contains matches an element whose text contains text (S's default
// fallback behavior, exposed directly for composite construction).
func Contains(text string) Selector { return Selector{iselector.Label(text, false)} }

// Attrs matches elements by tag and attribute pairs; tag may be empty
// to match any tag.
func Attrs(tag string, attrs map[string]string) Selector { return Selector{iselector.Attrs(tag, attrs)} }

// Image matches an <img> whose alt text contains text.
func Image(text string) Selector { return typed(iselector.ElementImage, text) }

// ImageAttrs matches an <img> by attribute map, falling back to the
// type-specific CSS when no label text is given, per spec.md §4.6 point 4.
func ImageAttrs(attrs map[string]string) Selector { return typedAttrs(iselector.ElementImage, attrs) }

// Link matches an <a> by its own text.
func Link(text string) Selector { return typed(iselector.ElementLink, text) }

// LinkAttrs matches an <a> by attribute map.
func LinkAttrs(attrs map[string]string) Selector { return typedAttrs(iselector.ElementLink, attrs) }

// ListItem matches an <li> by its own text.
func ListItem(text string) Selector { return typed(iselector.ElementListItem, text) }

// ListItemAttrs matches an <li> by attribute map.
func ListItemAttrs(attrs map[string]string) Selector {
	return typedAttrs(iselector.ElementListItem, attrs)
}

// Button matches a <button> or input[type=button/submit] by its own text.
func Button(text string) Selector { return typed(iselector.ElementButton, text) }

// ButtonAttrs matches a <button> or input[type=button/submit] by
// attribute map.
func ButtonAttrs(attrs map[string]string) Selector {
	return typedAttrs(iselector.ElementButton, attrs)
}

// InputField matches an <input> joined to a <label> with matching text.
func InputField(label string) Selector { return typed(iselector.ElementInputField, label) }

// InputFieldAttrs matches an <input> by attribute map, with no label
// join since there is no label text to join against.
func InputFieldAttrs(attrs map[string]string) Selector {
	return typedAttrs(iselector.ElementInputField, attrs)
}

// FileField matches an <input type=file> joined to a <label>.
func FileField(label string) Selector { return typed(iselector.ElementFileField, label) }

// FileFieldAttrs matches an <input type=file> by attribute map.
func FileFieldAttrs(attrs map[string]string) Selector {
	return typedAttrs(iselector.ElementFileField, attrs)
}

// TextField matches an <input type=text|email|...> or <textarea> joined
// to a <label>.
func TextField(label string) Selector { return typed(iselector.ElementTextField, label) }

// TextFieldAttrs matches an <input type=text|email|...> or <textarea>
// by attribute map.
func TextFieldAttrs(attrs map[string]string) Selector {
	return typedAttrs(iselector.ElementTextField, attrs)
}

// ComboBox matches a <select> joined to a <label>.
func ComboBox(label string) Selector { return typed(iselector.ElementComboBox, label) }

// ComboBoxAttrs matches a <select> by attribute map.
func ComboBoxAttrs(attrs map[string]string) Selector {
	return typedAttrs(iselector.ElementComboBox, attrs)
}

// CheckBox matches an <input type=checkbox> joined to a <label>.
func CheckBox(label string) Selector { return typed(iselector.ElementCheckBox, label) }

// CheckBoxAttrs matches an <input type=checkbox> by attribute map.
func CheckBoxAttrs(attrs map[string]string) Selector {
	return typedAttrs(iselector.ElementCheckBox, attrs)
}

// RadioButton matches an <input type=radio> joined to a <label>.
func RadioButton(label string) Selector { return typed(iselector.ElementRadioButton, label) }

// RadioButtonAttrs matches an <input type=radio> by attribute map.
func RadioButtonAttrs(attrs map[string]string) Selector {
	return typedAttrs(iselector.ElementRadioButton, attrs)
}

func typed(t iselector.ElementType, text string) Selector {
	return Selector{iselector.Typed(t, text, nil)}
}

// typedAttrs is typed's attribute-map counterpart: an empty text tells
// iselector.Typed to build from attrs instead, per spec.md §4.6 point 4's
// "fallback to the type-specific CSS when only attributes are given."
func typedAttrs(t iselector.ElementType, attrs map[string]string) Selector {
	return Selector{iselector.Typed(t, "", attrs)}
}
