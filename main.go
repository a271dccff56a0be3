package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sanity-io/litter"

	"github.com/kevinxiao27/otkit/ol"
	"github.com/kevinxiao27/otkit/room"
)

func main() {
	litter.Config.HidePrivateFields = false
	ctx := context.Background()

	log := ol.NewOpLog[room.Diff](room.System(), room.NewState())
	ann := ol.NewReplica[room.Diff]("ann", room.System(), room.NewState())
	bob := ol.NewReplica[room.Diff]("bob", room.System(), room.NewState())

	ann.Edit(room.Join("ann"), room.Rename("", "hi"), room.Share("notes", "ann"))
	bob.Edit(room.Join("bob"), room.Rename("", "yoooo"), room.Share("notes", "bob"), room.Transfer("", "bob"))

	for _, r := range []*ol.Replica[room.Diff, *room.State]{ann, bob, ann} {
		if err := r.Sync(ctx, log); err != nil {
			fmt.Fprintln(os.Stderr, "sync:", err)
			os.Exit(1)
		}
	}

	entries, _ := log.Since(ol.Root)
	fmt.Println("Log:")
	litter.Dump(entries)

	view1, view2 := ann.State().View(), bob.State().View()
	fmt.Printf("ann → %s\n", litter.Sdump(view1))
	fmt.Printf("bob → %s\n", litter.Sdump(view2))

	if litter.Sdump(view1) == litter.Sdump(view2) {
		fmt.Println("Replicas match")
	} else {
		fmt.Println("Replicas differ")
	}
}
