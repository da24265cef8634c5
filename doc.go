/*

Package datanodes organizes the output of a multi-step data processing
pipeline as a tree of directories, each tagged with metadata describing
what it is and which processing steps have completed inside it.

Vocabulary:

- datanode: a directory containing a datanode.json file, which holds
  datanode_created_on, datanode_name and datanode_class
- class: caller-defined string tag of a datanode; may be null
- variant: handler specialization bound to one class
- task: named subdirectory of a datanode where one processing step
  writes its output
- status record: datanode_task.json inside a task directory; holds
  completed_on, success, task_name and, on failure, exc_type,
  exc_value, exc_traceback and traceback_str
- subdatanode: datanode created by a task, stored in
  ‹datanode›/‹task›/subdatanodes/‹name›
- parent: the datanode three directory levels above a subdatanode
- pseudopath: datanode names from the root of the hierarchy down to a
  datanode, joined by '/'; used for diagnostics only

On-disk layout:

	‹datanode›/datanode.json
	‹datanode›/‹task›/datanode_task.json
	‹datanode›/‹task›/subdatanodes/‹subdatanode›/datanode.json

Both JSON files are tab-indented UTF-8 and are written atomically.
Readers ignore keys they do not know.

A task is used like this:

	err = dn.RunTask("measure", datanodes.TaskOptions{Requires: []string{"calibrate"}},
		func(task *datanodes.Task) error {
			return ioutil.WriteFile(filepath.Join(task.Dir(), "data.csv"), buf, 0644)
		})

Nothing here locks; callers must make sure only one writer works on a
datanode at a time.

*/

package datanodes
