package server

// DashboardHTML is the embedded single-page control panel. It lists the
// library, drives playback through the API and counts frames arriving on
// the active source's spokes stream.
const DashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>radarplay</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, monospace;
    background: #0d1117; color: #c9d1d9; padding: 20px;
  }
  h1 { color: #58a6ff; margin-bottom: 4px; font-size: 1.5em; }
  .subtitle { color: #8b949e; margin-bottom: 20px; font-size: 0.9em; }
  .status-bar {
    display: flex; gap: 20px; margin-bottom: 20px; padding: 12px 16px;
    background: #161b22; border: 1px solid #30363d; border-radius: 6px;
  }
  .status-item { display: flex; flex-direction: column; }
  .status-label { font-size: 0.75em; color: #8b949e; text-transform: uppercase; }
  .status-value { font-size: 1.1em; font-weight: 600; }
  .controls { display: flex; gap: 8px; margin-bottom: 20px; align-items: center; }
  button {
    background: #21262d; color: #c9d1d9; border: 1px solid #30363d;
    border-radius: 6px; padding: 6px 14px; cursor: pointer;
  }
  button:hover { background: #30363d; }
  .progress { flex: 1; height: 6px; background: #21262d; border-radius: 3px; overflow: hidden; }
  .progress-fill { height: 100%; background: #58a6ff; width: 0; }
  table { width: 100%; border-collapse: collapse; background: #161b22; border: 1px solid #30363d; }
  th, td { text-align: left; padding: 8px 16px; border-bottom: 1px solid #21262d; font-size: 0.85em; }
  th { color: #58a6ff; }
  .error { color: #f85149; margin-bottom: 12px; min-height: 1.2em; }
</style>
</head>
<body>
<h1>radarplay</h1>
<p class="subtitle">Radar recording playback</p>

<div class="status-bar">
  <div class="status-item"><span class="status-label">State</span><span class="status-value" id="state">idle</span></div>
  <div class="status-item"><span class="status-label">Recording</span><span class="status-value" id="name">-</span></div>
  <div class="status-item"><span class="status-label">Position</span><span class="status-value" id="position">0 / 0 ms</span></div>
  <div class="status-item"><span class="status-label">Frame</span><span class="status-value" id="frame">0 / 0</span></div>
  <div class="status-item"><span class="status-label">Frames/s</span><span class="status-value" id="fps">0</span></div>
  <div class="status-item"><span class="status-label">Sink errors</span><span class="status-value" id="errors">0</span></div>
</div>

<div class="controls">
  <button onclick="post('/api/play')">Play</button>
  <button onclick="post('/api/pause')">Pause</button>
  <button onclick="post('/api/stop')">Stop</button>
  <label><input type="checkbox" id="looping" onchange="setLooping(this.checked)"> Loop</label>
  <div class="progress"><div class="progress-fill" id="progress"></div></div>
</div>

<div class="error" id="error"></div>

<table>
  <thead><tr><th>Name</th><th>Size</th><th>Modified</th><th></th></tr></thead>
  <tbody id="recordings"></tbody>
</table>

<script>
let ws = null, wsStream = '', frames = 0;

async function api(method, path, body) {
  const res = await fetch(path, {method, body: body ? JSON.stringify(body) : undefined});
  const data = res.status === 204 ? null : await res.json();
  document.getElementById('error').textContent = res.ok ? '' : (data && data.error) || res.statusText;
  return data;
}

function post(path) { return api('POST', path).then(refreshStatus); }

function setLooping(on) { api('PUT', '/api/settings', {looping: on}); }

async function load(name) {
  await api('POST', '/api/recordings/' + encodeURIComponent(name) + '/load');
  refreshStatus();
}

async function refreshRecordings() {
  const list = await api('GET', '/api/recordings') || [];
  const body = document.getElementById('recordings');
  body.innerHTML = '';
  for (const rec of list) {
    const row = document.createElement('tr');
    row.innerHTML = '<td>' + escHtml(rec.name) + '</td><td>' + rec.size_human + '</td><td>' +
      new Date(rec.mod_time).toLocaleString() + '</td><td><button>Load</button></td>';
    row.querySelector('button').onclick = () => load(rec.name);
    body.appendChild(row);
  }
}

async function refreshStatus() {
  const st = await api('GET', '/api/status');
  if (!st) return;
  document.getElementById('state').textContent = st.state;
  document.getElementById('name').textContent = st.name || '-';
  document.getElementById('position').textContent = st.position_ms + ' / ' + st.duration_ms + ' ms';
  document.getElementById('frame').textContent = st.frame_index + ' / ' + st.frame_count;
  document.getElementById('errors').textContent = st.sink_errors;
  document.getElementById('looping').checked = st.looping;
  const pct = st.duration_ms > 0 ? (st.position_ms / st.duration_ms) * 100 : 0;
  document.getElementById('progress').style.width = pct + '%';
  subscribe(st.id ? st.id + '.spokes' : '');
}

function subscribe(stream) {
  if (stream === wsStream) return;
  if (ws) ws.close();
  ws = null; wsStream = stream;
  if (!stream) return;
  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  ws = new WebSocket(proto + '//' + location.host + '/ws/' + encodeURIComponent(stream));
  ws.binaryType = 'arraybuffer';
  ws.onmessage = () => { frames++; };
}

function escHtml(s) {
  const d = document.createElement('div');
  d.textContent = s;
  return d.innerHTML;
}

setInterval(() => {
  document.getElementById('fps').textContent = frames;
  frames = 0;
}, 1000);
setInterval(refreshStatus, 500);
refreshRecordings();
refreshStatus();
</script>
</body>
</html>`
