// Package compsearch is a Go client for searching Interlok component catalogs.
//
// A Client owns one background index worker shared by every session. A
// Session holds one user's search screen: the query form, the paginated
// result list, a multi-selection that survives new searches, and the
// build.gradle export of the selection.
//
//	client, _ := compsearch.New(
//	    compsearch.WithVersions("4.1.0-RELEASE", "4.0.0-RELEASE"),
//	    compsearch.WithBaseDir("./data"),
//	)
//	defer client.Close()
//
//	s := client.NewSession()
//	_, _ = s.Search(ctx, "jms", "", compsearch.Components)
//	view, _ := s.Wait(ctx)
//	for _, it := range view.Results {
//	    fmt.Println(it.Identity)
//	}
//
// Instances mode takes "ParentClass" or "ParentClass:text" and lists the
// components that can be placed inside ParentClass.
package compsearch
