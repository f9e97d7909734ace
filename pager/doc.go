/*
Package pager walks multi-page backend responses.

A Pager receives each raw decoded response together with the request that produced it
and the previous Page, and returns the entity payloads of that response plus everything
needed to ask for the next one:

	req = p.Prepare(req)            // once per operation
	for prev := (*pager.Page)(nil); ; {
	    raw, _ := backend.Do(ctx, req)
	    page, _ := p.Extract(raw, req, prev)
	    consume(page.Entities)
	    if page.Last {
	        break
	    }
	    req, prev = page.Next(req), page
	}

Implementations:
  - OData: follows "@odata.nextLink" (or "odata.nextLink" for OData 3) and can request a
    maximum page size through the Prefer header.
  - Offset: limit/offset paging over JSON arrays; a short page is the last one.

The DynamoDB backend ships its own cursor pager over LastEvaluatedKey.
*/
package pager
