/*
Package indielogin signs users in to a Micropub client using IndieAuth.

The package covers the client side of the protocol and nothing else: it
normalizes the URL a user enters, discovers the endpoints that URL declares,
builds the URL to send the user to, checks what comes back and swaps the
authorization code for an access token.

A sign-in is split across two requests. The first discovers the endpoints and
records a PendingLogin somewhere only the user agent can reach, usually a
cookie session:

    me, err := indielogin.NormalizeMe(r.FormValue("me"))
    if err != nil {
      // show an error
    }

    endpoints, err := client.FindEndpoints(ctx, me)
    if err != nil {
      // show an error
    }

    state, _ := indielogin.NewState()
    pending := indielogin.NewPendingLogin(me, state, endpoints, time.Now().Add(10*time.Minute))
    // store pending...

    authURL := client.AuthorizationURL(endpoints.Authorization, me, state, "create")
    http.Redirect(w, r, authURL.String(), http.StatusFound)

The second runs when the user comes back:

    code, err := indielogin.VerifyCallback(pending, r.URL.Query(), time.Now())
    // forget pending now, whatever happened
    if err != nil {
      // show an error
    }

    resp, err := client.Exchange(ctx, pending.TokenEndpoint, code, pending.Me)
    if err != nil {
      // resp.Raw holds whatever the token endpoint said
    }

    if err := indielogin.CheckIdentity(pending.Me, resp.Grant); err != nil {
      // someone is claiming a URL they do not own
    }

The sessions, users and login packages build a complete sign-in flow from
these pieces.

Further Reading

Spec: https://indieauth.spec.indieweb.org/
*/
package indielogin
