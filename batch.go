package deadtrees

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// raster file extensions picked up by TasksFromDir
var rasterExts = map[string]bool{
	".tif":  true,
	".tiff": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// BatchResult holds the outcome of one task in a batch run
type BatchResult struct {
	// Task is the task that was run
	Task Task
	// Result is the run result, nil when the task failed
	Result *Result
	// Err is the task failure, nil when the task succeeded
	Err error
}

// TasksFromDir builds a task for every raster image found in dir,
// output features are written next to each input as <name>_trees.geojson.
// An optional mask feature file is applied to every task.
func TasksFromDir(dir, mask string) ([]Task, error) {

	entries, err := filepath.Glob(filepath.Join(dir, "*"))

	if err != nil {
		return nil, fmt.Errorf("scan directory: %w", err)
	}

	sort.Strings(entries)

	var tasks []Task

	for _, entry := range entries {
		if !rasterExts[strings.ToLower(filepath.Ext(entry))] {
			continue
		}

		base := strings.TrimSuffix(filepath.Base(entry), filepath.Ext(entry))

		tasks = append(tasks, Task{
			Raster: entry,
			Mask:   mask,
			Output: filepath.Join(dir, base+"_trees.geojson"),
			Name:   base,
		})
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no raster images found in %s", dir)
	}

	return tasks, nil
}

// RunBatch runs the detection pipeline over all tasks in order. Task
// names are made unique so intermediate datasets of one task cannot
// overwrite those of another. A failed task is reported in its
// BatchResult and the batch continues with the next task.
func (d *Detector) RunBatch(tasks []Task) []BatchResult {

	results := make([]BatchResult, 0, len(tasks))
	taken := make(map[string]bool)

	for _, task := range tasks {
		name := task.Name

		if name == "" {
			name = strings.TrimSuffix(filepath.Base(task.Raster),
				filepath.Ext(task.Raster))
		}

		base := sanitizeName(name)
		name = base

		for i := 2; taken[name]; i++ {
			name = fmt.Sprintf("%s-%d", base, i)
		}

		taken[name] = true
		task.Name = name

		res, err := d.Run(task)

		if err != nil {
			d.log.WithField("task", name).
				WithField("raster", task.Raster).
				WithError(err).Warn("task failed")
		}

		results = append(results, BatchResult{
			Task:   task,
			Result: res,
			Err:    err,
		})
	}

	return results
}
