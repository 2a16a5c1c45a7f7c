package mapper

import "github.com/BearBump/OrderSync/internal/models"

// orderNotesDoc renders all notes as one paragraph, each note followed by a break.
func orderNotesDoc(notes []models.OrderNote) *models.Doc {
	if len(notes) == 0 {
		return nil
	}
	content := make([]models.Node, 0, 2*len(notes))
	for _, n := range notes {
		content = append(content, models.Text(n.Body), models.HardBreak())
	}
	return models.NewDoc(models.Paragraph(content...))
}

// preferencesDoc renders the editing, shooting and delivery sections, skipping
// empty ones. No sections means no document.
func preferencesDoc(p models.AgentPreference) *models.Doc {
	sections := []struct{ label, text string }{
		{"Client Editing Preference:", p.EditingPref},
		{"Client Shooting Preference:", p.ShootPref},
		{"Client Delivery Preference:", p.DeliveryPref},
	}
	var content []models.Node
	for _, s := range sections {
		if s.text == "" {
			continue
		}
		content = append(content, models.Paragraph(
			models.StrongText(s.label),
			models.HardBreak(),
			models.Text(s.text),
		))
	}
	if len(content) == 0 {
		return nil
	}
	return models.NewDoc(content...)
}

func essentialsParagraph() models.Node {
	return models.Paragraph(
		models.Text(essentialsTitle),
		models.HardBreak(),
		models.Text(essentialsBody),
	)
}

func qaParagraph(q models.IntakeQuestion) models.Node {
	return models.Paragraph(
		models.Text("Question: "+q.Question),
		models.HardBreak(),
		models.Text("Answer: "+q.Answer),
	)
}

func qaParagraphs(qs []models.IntakeQuestion) []models.Node {
	out := make([]models.Node, 0, len(qs))
	for _, q := range qs {
		out = append(out, qaParagraph(q))
	}
	return out
}

// prepend returns a copy of d with n in front; d itself is not modified.
func prepend(d *models.Doc, n models.Node) *models.Doc {
	if d == nil {
		return models.NewDoc(n)
	}
	out := d.Clone()
	out.Content = append([]models.Node{n}, out.Content...)
	return out
}

// appendNodes returns a copy of d with ns at the end; d itself is not modified.
func appendNodes(d *models.Doc, ns ...models.Node) *models.Doc {
	if d == nil {
		return models.NewDoc(ns...).Clone()
	}
	out := d.Clone()
	out.Content = append(out.Content, models.NewDoc(ns...).Clone().Content...)
	return out
}
