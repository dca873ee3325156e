package wsapi

const formHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Light Schedule</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; max-width: 420px; margin: 2em auto; padding: 0 1em; color: #222; }
  h1 { font-size: 1.4em; }
  label { display: block; margin: 0.8em 0 0.2em; }
  input[type=time] { font-size: 1.1em; }
  button { margin-top: 1em; font-size: 1em; padding: 0.4em 1.2em; }
  #status { margin-top: 1em; }
  .success { color: #2e7d32; }
  .error { color: #c62828; }
</style>
</head>
<body>
<h1>Light Schedule</h1>
<form id="schedule">
  <label for="onTime">On time</label>
  <input type="time" id="onTime" required>
  <label for="offTime">Off time</label>
  <input type="time" id="offTime" required>
  <br><button type="submit">Set schedule</button>
</form>
<div id="status"></div>
<script>
  const status = document.getElementById("status");
  const proto = location.protocol === "https:" ? "wss:" : "ws:";
  let ws;

  function show(cls, text) {
    status.className = cls;
    status.textContent = text;
  }

  function connect() {
    ws = new WebSocket(proto + "//" + location.host + "/ws");
    ws.onopen = () => show("", "Connected");
    ws.onmessage = (ev) => {
      const resp = JSON.parse(ev.data);
      show(resp.status, resp.message);
    };
    ws.onclose = () => {
      show("error", "Disconnected, retrying...");
      setTimeout(connect, 3000);
    };
  }

  document.getElementById("schedule").addEventListener("submit", (ev) => {
    ev.preventDefault();
    if (!ws || ws.readyState !== WebSocket.OPEN) {
      show("error", "Not connected");
      return;
    }
    ws.send(JSON.stringify({
      onTime: document.getElementById("onTime").value,
      offTime: document.getElementById("offTime").value
    }));
  });

  connect();
</script>
</body>
</html>
`
