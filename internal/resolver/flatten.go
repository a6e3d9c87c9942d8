package resolver

import "github.com/starford/bujo/internal/models"

// FlattenItems lists every item with its TaskID and ProjectID set, and
// indexes them by id. A dated task without items contributes one pending
// item standing in for the task itself.
func FlattenItems(projects []models.Project) ([]models.Item, models.ItemIndex) {
	items := []models.Item{}
	idx := make(models.ItemIndex)

	add := func(it models.Item) {
		items = append(items, it)
		idx[it.ID] = models.ItemRef{TaskID: it.TaskID, ProjectID: it.ProjectID}
	}

	for _, p := range projects {
		for _, t := range p.Tasks {
			if len(t.Items) == 0 {
				if t.Date != "" {
					add(models.Item{
						ID:            t.ID,
						Content:       t.Name,
						Date:          t.Date,
						StartDateTime: t.StartDateTime,
						EndDateTime:   t.EndDateTime,
						Status:        models.StatusPending,
						LineNumber:    t.LineNumber,
						DocID:         p.ID,
						BlockID:       t.BlockID,
						TaskID:        t.ID,
						ProjectID:     p.ID,
					})
				}
				continue
			}
			for _, it := range t.Items {
				it.TaskID = t.ID
				it.ProjectID = p.ID
				add(it)
			}
		}
	}
	return items, idx
}
