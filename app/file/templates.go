package file

import "html/template"

const pages = `
{{define "interstitial"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex">
<title>Your download is almost ready</title>
</head>
<body>
<main>
<div id="ad" class="ad-slot">Advertisement</div>
<p>Your download starts in <span id="countdown">{{.Seconds}}</span> seconds.</p>
<p><a id="continue" href="{{.Next}}" hidden>Continue to download</a></p>
</main>
<script>
(function () {
  var next = {{.Next}};
  var left = {{.Seconds}};
  var el = document.getElementById("countdown");
  var link = document.getElementById("continue");
  var tick = function () {
    if (left <= 0) {
      link.hidden = false;
      window.location.replace(next);
      return;
    }
    el.textContent = left;
    left--;
    setTimeout(tick, 1000);
  };
  tick();
})();
</script>
<noscript><p><a href="{{.Next}}">Continue to download</a></p></noscript>
</body>
</html>{{end}}

{{define "passcode"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex">
<title>Passcode required</title>
</head>
<body>
<main>
<h1>This file is protected</h1>
{{if .Invalid}}<p class="error">Wrong passcode, try again.</p>{{end}}
<form method="get" action="{{.Action}}">
<input type="hidden" name="{{.AdParam}}" value="{{.AdValue}}">
<label>Passcode <input type="password" name="passcode" autocomplete="off" autofocus required></label>
<button type="submit">Download</button>
</form>
</main>
</body>
</html>{{end}}
`

// Templates returns the HTML pages served to browsers.
func Templates() *template.Template {
	return template.Must(template.New("pages").Parse(pages))
}
