// Command wordreel wraps the pipeline package for one-shot, batch
// composition runs from the terminal: load config, open the catalog,
// run one job to completion, and report the result as status lines and a
// word-timing table.
package main
